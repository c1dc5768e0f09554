// Package server binds the mixer information model to an OPC UA endpoint.
package server

import (
	"fmt"

	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/config"
	"github.com/amine-amaach/simulators/mixerUnitOPCUA/internal/model"
	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service owns the OPC UA endpoint and the address space the mixer lives in.
type Service struct {
	srv    *server.Server
	logger *logrus.Logger
}

// New creates the OPC UA server: PKI bootstrap, endpoint, identities.
// Endpoint bind errors surface later from ListenAndServe; construction
// errors are fatal to startup.
func New(cfg config.Config, logger *logrus.Logger) (*Service, error) {
	if err := ensurePKI(cfg.Certificate, cfg.Host, logger); err != nil {
		return nil, errors.Wrap(err, "preparing server PKI")
	}
	endpointURL := fmt.Sprintf("opc.tcp://%s:%d", cfg.Host, cfg.Port)
	srv, err := server.New(
		ua.ApplicationDescription{
			ApplicationURI: fmt.Sprintf("urn:%s:MixerUnitUaServer", cfg.Host),
			ProductURI:     "http://github.com/amine-amaach/simulators/mixerUnitOPCUA",
			ApplicationName: ua.LocalizedText{
				Text:   fmt.Sprintf("MixerUnitUaServer@%s", cfg.Host),
				Locale: "en",
			},
			ApplicationType:     ua.ApplicationTypeServer,
			GatewayServerURI:    "",
			DiscoveryProfileURI: "",
			DiscoveryURLs:       []string{endpointURL},
		},
		certFile(cfg.Certificate),
		keyFile(cfg.Certificate),
		endpointURL,
		server.WithBuildInfo(
			ua.BuildInfo{
				ProductURI:       "http://github.com/amine-amaach/simulators/mixerUnitOPCUA",
				ManufacturerName: "amine-amaach",
				ProductName:      "MixerUnitUaServer",
				SoftwareVersion:  "latest",
			}),
		server.WithAnonymousIdentity(true),
		server.WithAuthenticateUserNameIdentityFunc(authenticate(hashUserIds(cfg.UserIds))),
		server.WithSecurityPolicyNone(true),
		server.WithInsecureSkipVerify(),
		server.WithServerDiagnostics(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating ua server")
	}
	return &Service{srv: srv, logger: logger}, nil
}

// Server returns the underlying OPC UA server.
func (s *Service) Server() *server.Server {
	return s.srv
}

// RegisterMixer adds the mixer namespace and its subtree to the address
// space. Called once at startup.
func (s *Service) RegisterMixer(sensorName string) (*model.Mixer, error) {
	m := model.NewMixer(s.srv, sensorName)
	if err := s.srv.NamespaceManager().AddNodes(m.Nodes()...); err != nil {
		return nil, errors.Wrap(err, "registering mixer subtree")
	}
	s.logger.WithFields(logrus.Fields{
		"namespace": model.NamespaceURI,
		"sensor":    sensorName,
	}).Info("Mixer registered in address space")
	return m, nil
}

// ListenAndServe accepts sessions until the server is halted.
func (s *Service) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Close releases the endpoint and terminates pending sessions.
func (s *Service) Close() error {
	return s.srv.Close()
}

func hashUserIds(userIds []config.UserID) []ua.UserNameIdentity {
	hashed := make([]ua.UserNameIdentity, 0, len(userIds))
	for _, u := range userIds {
		hash, _ := bcrypt.GenerateFromPassword([]byte(u.Password), 8)
		hashed = append(hashed, ua.UserNameIdentity{UserName: u.Username, Password: string(hash)})
	}
	return hashed
}

func authenticate(userIds []ua.UserNameIdentity) func(ua.UserNameIdentity, string, string) error {
	return func(userIdentity ua.UserNameIdentity, applicationURI string, endpointURL string) error {
		for _, user := range userIds {
			if user.UserName == userIdentity.UserName {
				if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(userIdentity.Password)); err == nil {
					return nil
				}
			}
		}
		return ua.BadUserAccessDenied
	}
}
