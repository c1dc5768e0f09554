// Package monitoring exposes process diagnostics for the mixer server over
// a prometheus scrape endpoint.
package monitoring

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics collects the mixer's observable signals. A nil *Metrics is a
// valid no-op collector, so callers can wire it unconditionally.
type Metrics struct {
	sensorValue prometheus.Gauge
	ticks       prometheus.Counter
	methodCalls *prometheus.CounterVec
	running     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		sensorValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_sensor_value",
			Help: "Current value of the mixer sensor variable.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mixer_sensor_updates_total",
			Help: "Sensor readings produced by the simulation loop.",
		}),
		methodCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mixer_method_calls_total",
			Help: "Remote method invocations, by method browse name.",
		}, []string{"method"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_running",
			Help: "1 while the mixer is running, 0 while stopped.",
		}),
	}
	prometheus.MustRegister(m.sensorValue, m.ticks, m.methodCalls, m.running)
	return m
}

func (m *Metrics) ObserveReading(value float64) {
	if m == nil {
		return
	}
	m.sensorValue.Set(value)
	m.ticks.Inc()
}

func (m *Metrics) ObserveCall(method string) {
	if m == nil {
		return
	}
	m.methodCalls.WithLabelValues(method).Inc()
}

func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}

// Serve exposes /metrics on the given port in the background.
func Serve(port int, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.WithField("addr", addr).Info("Serving prometheus metrics on /metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.WithField("err", err).Error("Metrics endpoint stopped")
		}
	}()
}
