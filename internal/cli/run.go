package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/config"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/dispatch"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/logging"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/model"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/monitoring"
	uaserver "github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/server"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/simulation"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const version = "v1.0.0"

var rootCmd = &cobra.Command{
	Use:   "mixer-opcua",
	Short: "A simulated mixer unit served over OPC UA",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mixer OPC UA server",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() {
	// Print Banner
	fmt.Println(colorize(fmt.Sprintf(banner, version), cyan))

	cfg := config.Get()
	logger := logging.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.DisableTimestamp)

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.New()
		monitoring.Serve(cfg.Metrics.Port, logger)
	}

	svc, err := uaserver.New(cfg, logger)
	if err != nil {
		logger.Fatal(errors.Wrap(err, "Error creating server"))
	}

	mixer, err := svc.RegisterMixer(cfg.Sensor.Name)
	if err != nil {
		logger.Fatal(errors.Wrap(err, "Error registering mixer"))
	}

	gen := simulation.NewDataGen(cfg.Sensor.Mean, cfg.Sensor.StandardDeviation)
	engine := simulation.NewEngine(
		gen,
		time.Duration(cfg.UpdateIntervalSeconds)*time.Second,
		func(value float64, timestamp time.Time) {
			mixer.SetSensorValue(value, timestamp)
			metrics.ObserveReading(value)
		},
		logger,
	)

	dispatcher := dispatch.New(mixer.Object().NodeID(), logger)
	if err := dispatcher.Register(mixer.StartMethod(), func() {
		engine.Start()
		metrics.ObserveCall("StartMixer")
		metrics.SetRunning(true)
	}); err != nil {
		logger.Fatal(err)
	}
	if err := dispatcher.Register(mixer.StopMethod(), func() {
		engine.Stop()
		metrics.ObserveCall("StopMixer")
		metrics.SetRunning(false)
	}); err != nil {
		logger.Fatal(err)
	}

	// serialize the custom namespace for external modeling tools.
	if err := model.WriteDescriptor(cfg.DescriptorPath, mixer, time.Now().UTC()); err != nil {
		logger.Fatal(errors.Wrap(err, "Error writing model descriptor"))
	}
	logger.WithField("path", cfg.DescriptorPath).Info("Model descriptor written")

	go func() {
		desc := colorize(svc.Server().LocalDescription().ApplicationName.Text, magenta)
		endpoint := colorize(svc.Server().EndpointURL(), cyan)
		logger.Infof("%s '%s' at '%s'", colorize("Starting server", cyan), desc, endpoint)
		if err := svc.ListenAndServe(); err != ua.BadServerHalted {
			logger.Fatal(errors.Wrap(err, "Error starting server"))
		}
	}()

	// Wait for a signal before exiting
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("Stopping server...")
	engine.Stop()
	svc.Close()
}
