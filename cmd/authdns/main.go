// Command authdns runs the authoritative DNS service: the UDP query
// server, the background health checker, and the control-plane HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/authdns/authdns/internal/cache"
	"github.com/authdns/authdns/internal/config"
	"github.com/authdns/authdns/internal/controlplane"
	"github.com/authdns/authdns/internal/ddns"
	"github.com/authdns/authdns/internal/health"
	"github.com/authdns/authdns/internal/logging"
	"github.com/authdns/authdns/internal/metrics"
	"github.com/authdns/authdns/internal/ratelimit"
	"github.com/authdns/authdns/internal/server"
	"github.com/authdns/authdns/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Configure(logging.Config{Level: cfg.LogLevel, Structured: true, StructuredFormat: "json"})
	logger.Info("authdns starting",
		"db", cfg.DBPath,
		"host", cfg.Host,
		"port", cfg.Port,
		"control_plane", net.JoinHostPort(cfg.ControlPlaneHost, strconv.Itoa(cfg.ControlPlanePort)),
	)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	lookupCache := cache.New[[]store.Record](cfg.CacheTTL)
	updater := ddns.New(st, lookupCache)
	checker := health.New(st, lookupCache, cfg.HealthCheckInterval, cfg.HealthCheckTimeout, logger)
	limiter := ratelimit.New(ratelimit.Config{
		QPS:           cfg.RateLimitQPS,
		Burst:         cfg.RateLimitBurst,
		BlockDuration: cfg.RateLimitBlockDuration,
	})

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	handler := &server.QueryHandler{
		Logger:  logger,
		Store:   st,
		Cache:   lookupCache,
		Metrics: m,
	}
	udpServer := &server.UDPServer{
		Logger:  logger,
		Handler: handler,
		Limiter: limiter,
	}

	cpServer := controlplane.New(cfg.ControlPlaneHost, cfg.ControlPlanePort, st, lookupCache, updater, registry, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go checker.Run(ctx)

	go func() {
		logger.Info("control plane listening", "addr", cpServer.Addr())
		if err := cpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control plane server error", "err", err)
			cancel()
		}
	}()

	dnsAddr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	runErr := udpServer.Run(ctx, dnsAddr)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = cpServer.Shutdown(shutdownCtx)
	shutdownCancel()
	logger.Info("authdns stopped")

	if runErr != nil {
		return fmt.Errorf("dns server exited with error: %w", runErr)
	}
	return nil
}
