// Command chamberd holds a humidity chamber inside its configured band. It
// runs until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/amp-labs/chamber/bgworker"
	"github.com/amp-labs/chamber/chamber"
	"github.com/amp-labs/chamber/envutil"
	"github.com/amp-labs/chamber/http/transport"
	"github.com/amp-labs/chamber/logger"
	"github.com/amp-labs/chamber/remote"
	"github.com/amp-labs/chamber/shutdown"
	"github.com/amp-labs/chamber/startup"
	"github.com/amp-labs/chamber/telemetry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	appName = "chamberd"

	dnsRefreshInterval = 5 * time.Minute
	shutdownTimeout    = 5 * time.Second
)

func main() {
	ctx := shutdown.SetupHandler()

	if err := startup.ConfigureEnvironment(ctx); err != nil {
		slog.Error("Error loading environment files", "error", err)
		os.Exit(1)
	}

	logger.ConfigureLogging(ctx, appName)

	cfg, err := chamber.LoadConfig(ctx)
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	flushTraces := setupTelemetry(ctx, cfg)
	serveMetrics(ctx)

	device := remote.NewClient(cfg.Server, remote.WithHTTPClient(&http.Client{
		Transport: transport.NewLoggingTransport(newTransport(ctx)),
	}))

	ctx = logger.With(ctx, "run_id", uuid.NewString())

	logger.Get(ctx).Info("Starting chamber",
		"server", cfg.Server.Address,
		"port", cfg.Server.Port,
		"rh_low", cfg.RHLowPercent,
		"rh_high", cfg.RHHighPercent,
		"poll_interval", cfg.PollInterval)

	// Run has ended every span once it returns, so flushing afterwards
	// exports the final state.
	err = chamber.Run(ctx, cfg, device)

	flushTraces()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("Chamber stopped", "error", err)
	}

	logger.Get(ctx).Info("Chamber stopped")
}

// setupTelemetry starts tracing and returns the function that flushes and
// stops it.
func setupTelemetry(ctx context.Context, cfg chamber.Config) func() {
	otelCfg, err := telemetry.LoadConfigFromEnv(ctx, envutil.String(ctx, "ENVIRONMENT",
		envutil.Default("local")).ValueOrElse("local"))
	if err != nil {
		logger.Fatal("Invalid telemetry configuration", "error", err)
	}

	otelCfg.Attributes = append(otelCfg.Attributes,
		attribute.String("chamber.server.address", cfg.Server.Address))

	if err := telemetry.Initialize(ctx, otelCfg); err != nil {
		logger.Get(ctx).Warn("Tracing disabled", "error", err)

		return func() {}
	}

	return func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := telemetry.Shutdown(flushCtx); err != nil {
			logger.Get(ctx).Warn("Error flushing traces", "error", err)
		}
	}
}

// serveMetrics exposes /metrics on METRICS_ADDR. It does nothing when the
// variable is unset.
func serveMetrics(ctx context.Context) {
	addr := envutil.String(ctx, "METRICS_ADDR").ValueOrElse("")
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	err := bgworker.Go(ctx, func(ctx context.Context) {
		stop := context.AfterFunc(ctx, func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(stopCtx); err != nil {
				logger.Get(ctx).Warn("Error stopping metrics server", "error", err)
			}
		})
		defer stop()

		logger.Get(ctx).Info("Serving metrics", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "error", err)
		}
	})
	if err != nil {
		logger.Get(ctx).Error("Unable to start metrics server", "error", err)
	}
}

// newTransport builds the shared HTTP transport. With the DNS cache enabled
// the cache is refreshed in the background until shutdown.
func newTransport(ctx context.Context) *http.Transport {
	if !envutil.Bool(ctx, "HTTP_TRANSPORT_DNS_CACHE", envutil.Default(false)).ValueOrElse(false) {
		return transport.New(ctx)
	}

	err := bgworker.Go(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				transport.RefreshDNS(false)
			}
		}
	})
	if err != nil {
		logger.Get(ctx).Warn("DNS cache will not be refreshed", "error", err)
	}

	return transport.New(ctx, transport.EnableDNSCache)
}
