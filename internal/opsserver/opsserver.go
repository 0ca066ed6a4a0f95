// Package opsserver exposes the small per-gate-node HTTP surface operators
// poll: a liveness probe and the Prometheus scrape endpoint. Routing is
// gorilla/mux, grounded on the teacher's cmd/cryptorun/cmd_health.go health
// snapshot shape, given an HTTP face rather than a one-shot CLI print.
package opsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthStatus is the JSON body returned by GET /healthz.
type HealthStatus struct {
	Status  string    `json:"status"`
	Gates   []string  `json:"gates"`
	AsOf    time.Time `json:"as_of"`
}

// Server is the ops HTTP surface for one edge node (all of that node's
// gates share one server; it is not per-gate).
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// New builds a Server bound to addr, serving /healthz and /metrics (scraped
// from reg).
func New(addr string, gates []string, reg *prometheus.Registry, logger zerolog.Logger) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthzHandler(gates)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		log: logger,
	}
}

func healthzHandler(gates []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status: "HEALTHY",
			Gates:  gates,
			AsOf:   time.Now().UTC(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// Run serves until ctx is cancelled, then shuts down within 5s.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("ops server shutdown error")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
