package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/backend"
	"ecomdash/internal/cli"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/services"
	"ecomdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting ecomdash-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	m := metrics.New()

	// Report runs are tracked here even when the dataset comes from elsewhere.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.Repository = repo

	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create data backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}

	dash := services.NewDashboardService(result.Source, services.DashboardOptions{
		TopN:      cfg.TopN,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Metrics:   m,
		Logger:    logger,
	})
	if err := dash.Load(context.Background()); err != nil {
		logger.Error("Failed to load dataset", log.FieldError, err, log.FieldSource, result.Source.Name())
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPResultRoutingKey, cfg.WorkerPrefetch)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	var reloader *services.ReloadProcessor
	if cfg.ReloadInterval > 0 {
		reloader = services.NewReloadProcessor(dash, cfg.ReloadInterval)
		if err := reloader.Start(context.Background()); err != nil {
			logger.Error("Failed to start dataset reloader", log.FieldError, err)
			os.Exit(1)
		}
	}

	reportWorker := worker.NewReportWorker(dash, client, repo, m)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if reloader != nil {
			_ = reloader.Stop(ctx)
		}
	})

	go func() {
		err := client.ConsumeReportRequests(ctx, reportWorker.HandleReportRequest)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
			os.Exit(1)
		}
	}()

	logger.Info("Consuming report requests",
		"queue", cfg.AMQPRequestQueue,
		"prefetch", cfg.WorkerPrefetch)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
