package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	httpServer

	// gatherer defaults to the registry promauto registers with
	gatherer prometheus.Gatherer
}

func (m *MetricsServer) Handler() http.Handler {
	g := m.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return hdlr
}

// Start binds addr and serves in the background
func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	return m.start(ctx, addr, m.Handler())
}
