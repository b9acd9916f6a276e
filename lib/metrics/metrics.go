// Package metrics holds the Prometheus collectors of the scanner and the HTTP endpoint exposing them.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const timeout = 15 * time.Second

// Collectors.
var (
	Candidates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_candidates_total",
		Help: "Key pairs generated and scanned.",
	})
	Discoveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_discoveries_total",
		Help: "Addresses found with a non-zero balance and recorded.",
	})
	RPCFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_rpc_failures_total",
		Help: "Failed balance queries by network and kind (timeout, unreachable, rpc).",
	}, []string{"net", "kind"})
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scanner_rpc_duration_seconds",
		Help:    "Duration of balance queries by network.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"net"})
	SinkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_sink_retries_total",
		Help: "Retried appends to the results artifact.",
	})
	WorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_workers_running",
		Help: "Workers currently running their scan loop.",
	})
)

// Router returns the router serving /metrics.
func Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Serve starts the metrics endpoint on addr (ie. ":9100") and returns a function shutting it down.
func Serve(addr string) func() {
	s := &http.Server{
		Handler:      Router(),
		Addr:         addr,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics API")

		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics API stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Error in metrics server shutdown")
		}
	}
}
