// Package service runs the HTTP endpoints op-harness exposes during a run
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/metrics"
)

// Config selects which endpoints to serve. An empty address disables one.
type Config struct {
	Log         log.Logger
	HealthzAddr string
	MetricsAddr string
	Running     func() bool // Reported by the health check
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	log log.Logger
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	logger := cfg.Log.New("component", "service")
	return &Service{
		Healthz: &HealthzServer{log: logger, running: cfg.Running},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
}

// Start binds every enabled endpoint before returning and serves them in
// the background. A failure to bind is logged and leaves that endpoint off.
func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	if addr := s.cfg.HealthzAddr; addr != "" {
		s.log.Info("starting healthz server", "addr", addr)
		if err := s.Healthz.Start(ctx, addr); err != nil {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		} else {
			go s.watch("healthz", &s.Healthz.httpServer)
		}
	}

	if addr := s.cfg.MetricsAddr; addr != "" {
		s.log.Info("starting metrics server", "addr", addr)
		if err := s.Metrics.Start(ctx, addr); err != nil {
			s.log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		} else {
			go s.watch("metrics", &s.Metrics.httpServer)
		}
	}

	s.log.Info("service started")
}

func (s *Service) watch(name string, srv *httpServer) {
	<-srv.Done()
	if err := srv.Err(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("server stopped unexpectedly", "server", name, "err", err)
		metrics.RecordErrorDetails("error serving "+name, err)
	}
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
