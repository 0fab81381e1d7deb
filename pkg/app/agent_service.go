package app

import (
	"context"
	"log/slog"

	"github.com/kodexlab/kodex/pkg/agent"
	"github.com/kodexlab/kodex/pkg/dispatch"
	"github.com/nats-io/nats.go"
)

// agentService owns the embedded NATS server and the tool gateway as
// one lifecycle unit, so the composition root can treat the agent
// boundary like any other service.
type agentService struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	srv     *agent.EmbeddedServer
	nc      *nats.Conn
	gateway *agent.Gateway
}

func newAgentService(dispatcher *dispatch.Dispatcher, logger *slog.Logger) *agentService {
	return &agentService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Name implements runner.Service.
func (s *agentService) Name() string { return "agent" }

// Start boots the embedded server, connects, and subscribes the gateway.
func (s *agentService) Start(ctx context.Context) error {
	srv, err := agent.StartEmbeddedServer()
	if err != nil {
		return err
	}
	s.srv = srv

	nc, err := srv.Connect()
	if err != nil {
		srv.Shutdown()
		s.srv = nil
		return err
	}
	s.nc = nc

	s.gateway = agent.NewGateway(nc, s.dispatcher, agent.WithLogger(s.logger))
	if err := s.gateway.Start(ctx); err != nil {
		nc.Close()
		srv.Shutdown()
		s.nc = nil
		s.srv = nil
		return err
	}

	s.logger.Info("agent boundary ready", "url", srv.URL())
	return nil
}

// Stop drains the gateway, then tears the connection and server down.
func (s *agentService) Stop(ctx context.Context) error {
	var err error
	if s.gateway != nil {
		err = s.gateway.Stop(ctx)
		s.gateway = nil
	}
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.srv != nil {
		s.srv.Shutdown()
		s.srv = nil
	}
	return err
}

// URL exposes the embedded server address for agent clients.
func (s *agentService) URL() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.URL()
}

// HealthCheck implements runner.HealthChecker.
func (s *agentService) HealthCheck(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}
	return s.gateway.HealthCheck(ctx)
}
