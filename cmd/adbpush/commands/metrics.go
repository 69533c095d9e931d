package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/adbpush/internal/admetrics"
	"github.com/marmos91/adbpush/internal/config"
	"github.com/marmos91/adbpush/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startMetrics wires up admetrics.Metrics against a fresh registry and, if
// cfg.Metrics.Enabled, serves it over HTTP at /metrics. It returns a
// nil-safe *admetrics.Metrics (admetrics' own nil-safety contract means
// callers never need to branch on whether metrics are enabled) plus a
// shutdown func that is always safe to call.
func startMetrics(cfg *config.Config) (*admetrics.Metrics, func(context.Context) error) {
	if !cfg.Metrics.Enabled {
		return nil, func(context.Context) error { return nil }
	}

	reg := prometheus.NewRegistry()
	m := admetrics.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", logger.KeyError, err)
		}
	}()
	logger.Info("metrics enabled", "port", cfg.Metrics.Port)

	return m, func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
