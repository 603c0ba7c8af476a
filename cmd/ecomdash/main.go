package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/backend"
	"ecomdash/internal/cache"
	"ecomdash/internal/cli"
	"ecomdash/internal/config"
	apphttp "ecomdash/internal/http"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/middleware/ratelimit"
	"ecomdash/internal/services"
	"ecomdash/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	m := metrics.New()

	// The repository backs the sqlite source and report tracking.
	var repo *storage.SQLiteRepository
	if cfg.DataBackend == config.BackendSQLite || cfg.AMQPURL != "" {
		repo = cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.Repository = repo

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	dash := services.NewDashboardService(result.Source, services.DashboardOptions{
		TopN:      cfg.TopN,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Metrics:   m,
		Logger:    logger,
	})

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	err = dash.Load(loadCtx)
	loadCancel()
	if err != nil {
		// Malformed or missing input is fatal at startup.
		logger.Error("Failed to load dataset", log.FieldError, err, log.FieldSource, result.Source.Name())
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(dash.Cache())
	cacheManager.StartCleanup(cfg.CacheTTL)

	var reloader *services.ReloadProcessor
	if cfg.ReloadInterval > 0 {
		reloader = services.NewReloadProcessor(dash, cfg.ReloadInterval)
		if err := reloader.Start(context.Background()); err != nil {
			logger.Error("Failed to start dataset reloader", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Dataset reload enabled", "interval", cfg.ReloadInterval.String())
	}

	var publisher services.ReportPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultRoutingKey, cfg.WorkerPrefetch)
		if err != nil {
			// Reports are optional; the dashboard still serves.
			logger.Error("Failed to initialize AMQP client, reports disabled", log.FieldError, err)
		} else {
			publisher = client
		}
	} else {
		logger.Info("AMQP_URL not set, reports disabled")
	}
	var store services.ReportStore
	if repo != nil {
		store = repo
	}
	reports := services.NewReportService(publisher, store, cfg.TopN)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Dashboard: dash,
		Reports:   reports,
		Metrics:   m,
		Logger:    logger,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateBurst,
		},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if reloader != nil {
			if err := reloader.Stop(ctx); err != nil {
				logger.Error("Reloader shutdown error", log.FieldError, err)
			}
		}
		cacheManager.Stop()
		if err := reports.Close(); err != nil {
			logger.Error("Report service shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting ecomdash server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"reports", reports.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
