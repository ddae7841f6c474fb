package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/luckymifta/dash-atm-collector/internal/collector"
	"github.com/luckymifta/dash-atm-collector/internal/config"
	"github.com/luckymifta/dash-atm-collector/internal/logger"
	"github.com/luckymifta/dash-atm-collector/internal/reachability"
	"github.com/luckymifta/dash-atm-collector/internal/registry"
	"github.com/luckymifta/dash-atm-collector/internal/scheduler"
	"github.com/luckymifta/dash-atm-collector/internal/storage"
	"github.com/luckymifta/dash-atm-collector/internal/vendorclient"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	log := logger.New(cfg)

	log.Info().Bool("demo", cfg.Demo).Bool("continuous", cfg.Continuous).Msg("atm collector starting")

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RegistryPath).Msg("failed to load terminal registry")
	}

	var store *storage.Store
	if cfg.SaveToDB && !cfg.Demo {
		ctx := context.Background()
		store, err = storage.Open(ctx, cfg.DSN(), !cfg.UseNewTables, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure database schema")
		}
	} else if !cfg.Demo {
		log.Warn().Msg("--save-to-db not set, persistence is disabled for this run")
	}

	var client *vendorclient.Client
	var prober *reachability.Prober
	if !cfg.Demo {
		sess := vendorclient.NewSession(cfg.VendorBaseURL, cfg.VendorConnTimeout, cfg.VendorReadTimeout)
		auth := vendorclient.NewAuthManager(
			vendorclient.Credentials{Username: cfg.VendorUsername, Password: cfg.VendorPassword},
			vendorclient.Credentials{Username: cfg.FallbackUsername, Password: cfg.FallbackPassword},
			log,
		)
		client = vendorclient.NewClient(sess, auth, cfg.VendorUsername, cfg.VendorMaxRetries, log)
		prober = reachability.NewProber(cfg.VendorBaseURL, log)
	}

	coll := collector.New(
		prober, client, reg, store,
		cfg.TotalATMs, cfg.IncludeCashInfo, cfg.Demo, cfg.InterTerminalPause,
		log,
	)
	sched := scheduler.New(coll, cfg.Interval, log)

	if !cfg.Continuous {
		res := sched.RunOnce(context.Background())
		if res.Outcome != "ok" {
			log.Warn().Str("reason", string(res.FailoverReason)).Msg("cycle completed via failover branch")
		}
		return
	}

	go serveMetrics(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.RunContinuous(ctx)

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")
	sched.Stop()
	log.Info().Msg("atm collector stopped gracefully")
	os.Exit(130)
}

// serveMetrics exposes the Prometheus collector registered by
// internal/metrics on :9090/metrics for the duration of a continuous
// run. A bind failure is logged, not fatal: metrics are diagnostic,
// not load-bearing.
func serveMetrics(log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":9090", mux); err != nil {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}
