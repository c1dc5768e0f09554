package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/config"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/dispatch"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/model"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/simulation"
	"github.com/awcullen/opcua/client"
	"github.com/awcullen/opcua/ua"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 100 * time.Millisecond

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Host:                  "localhost",
		Port:                  48400,
		UpdateIntervalSeconds: 1,
		DescriptorPath:        filepath.Join(dir, "server.xml"),
		Sensor:                config.Sensor{Name: "Temperature", Mean: 20.0, StandardDeviation: 5.0},
		UserIds:               []config.UserID{{Username: "root", Password: "secret"}},
		Certificate:           config.Certificate{PKIDir: filepath.Join(dir, "pki")},
	}
}

// startTestServer brings up a full server with the mixer registered, the
// engine wired to the sensor, and both methods bound.
func startTestServer(t *testing.T) (*Service, *model.Mixer, *simulation.Engine) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := testConfig(t)
	svc, err := New(cfg, logger)
	require.NoError(t, err)

	mixer, err := svc.RegisterMixer(cfg.Sensor.Name)
	require.NoError(t, err)

	gen := simulation.NewDataGen(cfg.Sensor.Mean, cfg.Sensor.StandardDeviation)
	engine := simulation.NewEngine(gen, testInterval, mixer.SetSensorValue, logger)

	d := dispatch.New(mixer.Object().NodeID(), logger)
	require.NoError(t, d.Register(mixer.StartMethod(), func() { engine.Start() }))
	require.NoError(t, d.Register(mixer.StopMethod(), func() { engine.Stop() }))

	require.NoError(t, model.WriteDescriptor(cfg.DescriptorPath, mixer, time.Now().UTC()))

	go func() {
		if err := svc.ListenAndServe(); err != ua.BadServerHalted {
			logger.Error(err)
		}
	}()
	t.Cleanup(func() {
		engine.Stop()
		svc.Close()
	})
	return svc, mixer, engine
}

func dialTestServer(t *testing.T, ctx context.Context, endpointURL string) *client.Client {
	t.Helper()
	var (
		ch  *client.Client
		err error
	)
	// the listener comes up in the background; retry briefly
	for i := 0; i < 50; i++ {
		ch, err = client.Dial(ctx, endpointURL, client.WithInsecureSkipVerify())
		if err == nil {
			return ch
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("dialing test server: %s", err)
	return nil
}

func callMethod(t *testing.T, ctx context.Context, ch *client.Client, object, method ua.NodeID) ua.StatusCode {
	t.Helper()
	res, err := ch.Call(ctx, &ua.CallRequest{
		MethodsToCall: []ua.CallMethodRequest{{ObjectID: object, MethodID: method}},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	return res.Results[0].StatusCode
}

func readSensor(t *testing.T, ctx context.Context, ch *client.Client, id ua.NodeID) float64 {
	t.Helper()
	res, err := ch.Read(ctx, &ua.ReadRequest{
		NodesToRead: []ua.ReadValueID{{NodeID: id, AttributeID: ua.AttributeIDValue}},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	if v, ok := res.Results[0].Value.(float64); ok {
		return v
	}
	return 0
}

const sensorClientHandle = uint32(42)

// subscribeSensor creates a subscription with one reporting monitored item
// on the sensor value and returns the subscription id.
func subscribeSensor(t *testing.T, ctx context.Context, ch *client.Client, sensorID ua.NodeID) uint32 {
	t.Helper()
	subRes, err := ch.CreateSubscription(ctx, &ua.CreateSubscriptionRequest{
		RequestedPublishingInterval: 50.0,
		RequestedLifetimeCount:      90,
		RequestedMaxKeepAliveCount:  30,
		PublishingEnabled:           true,
	})
	require.NoError(t, err)

	itemsRes, err := ch.CreateMonitoredItems(ctx, &ua.CreateMonitoredItemsRequest{
		SubscriptionID:     subRes.SubscriptionID,
		TimestampsToReturn: ua.TimestampsToReturnBoth,
		ItemsToCreate: []ua.MonitoredItemCreateRequest{{
			ItemToMonitor:  ua.ReadValueID{NodeID: sensorID, AttributeID: ua.AttributeIDValue},
			MonitoringMode: ua.MonitoringModeReporting,
			RequestedParameters: ua.MonitoringParameters{
				ClientHandle:     sensorClientHandle,
				SamplingInterval: 50.0,
				QueueSize:        16,
				DiscardOldest:    true,
			},
		}},
	})
	require.NoError(t, err)
	require.Len(t, itemsRes.Results, 1)
	require.True(t, itemsRes.Results[0].StatusCode.IsGood())
	return subRes.SubscriptionID
}

// collectNotifications drives the publish loop for the given window and
// returns the sensor values delivered by data change notifications, in
// arrival order. Acknowledgements carry the previous sequence number.
func collectNotifications(t *testing.T, ch *client.Client, subID uint32, window time.Duration) []float64 {
	t.Helper()
	var values []float64
	var acks []ua.SubscriptionAcknowledgement
	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()
	for {
		res, err := ch.Publish(ctx, &ua.PublishRequest{SubscriptionAcknowledgements: acks})
		if err != nil {
			// window elapsed
			return values
		}
		if res.SubscriptionID != subID {
			continue
		}
		acks = []ua.SubscriptionAcknowledgement{{
			SubscriptionID: res.SubscriptionID,
			SequenceNumber: res.NotificationMessage.SequenceNumber,
		}}
		for _, nd := range res.NotificationMessage.NotificationData {
			dcn, ok := nd.(ua.DataChangeNotification)
			if !ok {
				continue
			}
			for _, item := range dcn.MonitoredItems {
				if item.ClientHandle != sensorClientHandle {
					continue
				}
				if v, ok := item.Value.Value.(float64); ok {
					values = append(values, v)
				}
			}
		}
	}
}

func distinctValues(values []float64) int {
	set := map[float64]struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	return len(set)
}

func TestServerScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end scenario in short mode")
	}
	ctx := context.Background()
	svc, mixer, engine := startTestServer(t)

	ch := dialTestServer(t, ctx, svc.Server().EndpointURL())
	defer ch.Close(ctx)

	sensorID := mixer.Sensor().NodeID()
	subID := subscribeSensor(t, ctx, ch, sensorID)

	// before any interaction the sensor is static; the subscription may
	// deliver the initial value but nothing beyond it
	initial := readSensor(t, ctx, ch, sensorID)
	idle := collectNotifications(t, ch, subID, 5*testInterval)
	assert.LessOrEqual(t, distinctValues(idle), 1)
	assert.Equal(t, initial, readSensor(t, ctx, ch, sensorID))
	assert.Equal(t, simulation.PhaseStopped, engine.Phase())

	// start the mixer; the subscription pushes fresh readings
	status := callMethod(t, ctx, ch, mixer.Object().NodeID(), mixer.StartMethod().NodeID())
	assert.True(t, status.IsGood())

	running := collectNotifications(t, ch, subID, 15*testInterval)
	assert.GreaterOrEqual(t, distinctValues(running), 2,
		"expected multiple sensor updates to be published while running")

	// starting while running is a no-op returning success
	status = callMethod(t, ctx, ch, mixer.Object().NodeID(), mixer.StartMethod().NodeID())
	assert.True(t, status.IsGood())
	assert.Equal(t, simulation.PhaseRunning, engine.Phase())

	// stop the mixer; after in-flight notifications drain, nothing more
	// arrives and the value ceases changing
	status = callMethod(t, ctx, ch, mixer.Object().NodeID(), mixer.StopMethod().NodeID())
	assert.True(t, status.IsGood())
	collectNotifications(t, ch, subID, 3*testInterval)
	stopped := collectNotifications(t, ch, subID, 5*testInterval)
	assert.Empty(t, stopped)
	settled := readSensor(t, ctx, ch, sensorID)
	time.Sleep(3 * testInterval)
	assert.Equal(t, settled, readSensor(t, ctx, ch, sensorID))

	// mismatched parent object is rejected
	status = callMethod(t, ctx, ch, ua.ObjectIDObjectsFolder, mixer.StartMethod().NodeID())
	assert.Equal(t, ua.BadMethodInvalid, status)
	assert.Equal(t, simulation.PhaseStopped, engine.Phase())
}
