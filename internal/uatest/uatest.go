// Package uatest builds throwaway servers for tests that need a real
// address space behind the mixer nodes.
package uatest

import (
	"path/filepath"
	"testing"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/config"
	uaserver "github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/server"
	"github.com/sirupsen/logrus"
)

// NewService creates a server backed by a temporary PKI directory. The
// endpoint is not bound until ListenAndServe is called, so tests that only
// construct nodes never touch the network.
func NewService(t *testing.T, port int) *uaserver.Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	svc, err := uaserver.New(config.Config{
		Host: "localhost",
		Port: port,
		Sensor: config.Sensor{
			Name:              "Temperature",
			Mean:              20.0,
			StandardDeviation: 5.0,
		},
		UserIds: []config.UserID{{Username: "root", Password: "secret"}},
		Certificate: config.Certificate{
			PKIDir: filepath.Join(t.TempDir(), "pki"),
		},
	}, logger)
	if err != nil {
		t.Fatalf("creating test server: %s", err)
	}
	return svc
}
