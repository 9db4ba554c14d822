package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

type HealthzServer struct {
	httpServer
	log log.Logger

	// running reports whether a run is still in progress
	running func() bool
}

func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

// Start binds addr and serves in the background
func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	return h.start(ctx, addr, h.Handler())
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	if h.log != nil {
		h.log.Debug("Received health check request", "path", r.URL.Path)
	}
	if h.running != nil && !h.running() {
		w.Write([]byte("DONE")) //nolint:errcheck
		return
	}
	w.Write([]byte("OK")) //nolint:errcheck
}
