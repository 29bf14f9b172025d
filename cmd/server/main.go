package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"eduhub/internal/bootstrap"
	"eduhub/internal/credential/handler"
	"eduhub/internal/platform/config"
	"eduhub/internal/platform/health"
	"eduhub/internal/platform/logger"
	"eduhub/internal/platform/metrics"
	httptransport "eduhub/internal/transport/http"
	"eduhub/pkg/platform/middleware/metadata"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("eduhub stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until SIGINT/SIGTERM or a fatal error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	reg := metrics.NewRegistry()

	backend, err := bootstrap.OpenLedger(ctx, cfg.Ledger, reg, log)
	if err != nil {
		return err
	}
	defer backend.Close() //nolint:errcheck // process is exiting

	gw, err := bootstrap.NewGateway(cfg, backend.Ledger, bootstrap.GatewayOptions{
		Registerer: reg,
		Clock:      clock,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer gw.Close() //nolint:errcheck // drains queued events on exit

	probes := health.New(cfg.Issuer.Environment, clock)
	if backend.Health != nil {
		probes.RegisterCheck("ledger_"+backend.Name, backend.Health)
	}
	if check := gw.EventsHealth(); check != nil {
		probes.RegisterCheck("kafka", check)
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Config{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TrustedProxies: trusted,
		AdminToken:     cfg.AdminToken,
		AdminTokenHash: cfg.AdminTokenHash,
	}, httptransport.Deps{
		Claims:   handler.New(gw.Service, log),
		Health:   probes,
		Registry: reg,
		Clock:    clock,
		Logger:   log,
	})

	sched, err := bootstrap.NewStatsScheduler(cfg.StatsInterval, clock, log,
		backend.RecordStats,
		gw.RecordBreakerState,
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting eduhub",
		"addr", cfg.Addr,
		"issuer_environment", cfg.Issuer.Environment,
		"issuer_endpoint", gw.Issuer.Endpoint(),
		"ledger_backend", backend.Name,
		"kafka_enabled", cfg.Kafka.Enabled(),
		"oca_key_set", cfg.Issuer.APIKey(false) != "",
		"ocb_key_set", cfg.Issuer.APIKey(true) != "",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		return sched.Shutdown()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
