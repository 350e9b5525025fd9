package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/queuectl/config"
	"github.com/target/queuectl/internal/observability/prom"
	"github.com/target/queuectl/internal/observability/statsd"
)

const metricsShutdownTimeout = 5 * time.Second

// ObservabilityContainer holds the metrics backends built from config.
type ObservabilityContainer struct {
	// Sink fans out to every enabled backend. Nil when none is enabled.
	Sink       statsd.Sink
	Statsd     *statsd.Client
	Prometheus *prom.Collector
}

// Close releases the StatsD socket.
func (o ObservabilityContainer) Close() error {
	if o.Statsd == nil {
		return nil
	}
	return o.Statsd.Close()
}

// BuildObservability configures the StatsD client and Prometheus collector.
// A StatsD failure is logged and metrics continue without it.
func BuildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var out ObservabilityContainer
	var sinks []statsd.Sink

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.Statsd = client
			sinks = append(sinks, client)
		}
	}

	if cfg.PrometheusAddr != "" {
		out.Prometheus = prom.NewCollector()
		sinks = append(sinks, out.Prometheus)
	}

	out.Sink = statsd.NewMulti(sinks...)
	return out
}

// StartMetricsServer serves the Prometheus collector on addr until Shutdown.
// It returns nil when there is no collector or no address.
func StartMetricsServer(addr string, collector *prom.Collector, logger *slog.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// ShutdownMetricsServer stops srv, waiting briefly for in-flight scrapes.
func ShutdownMetricsServer(srv *http.Server, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}
