// Command ecomdash-import copies the order export into the SQLite database
// so the dashboard can start with DATA_BACKEND=sqlite.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ecomdash/internal/backend"
	"ecomdash/internal/cli"
	"ecomdash/internal/log"
)

func main() {
	cli.LoadEnvFile()

	file := flag.String("file", "", "CSV or XLSX export to import (default DATA_FILE)")
	sheet := flag.String("sheet", "", "worksheet name for XLSX files (default DATA_SHEET)")
	flag.Parse()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentStorage)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if *file != "" {
		backendCfg.Type = backend.FileBackend
		backendCfg.DataFile = *file
	}
	if *sheet != "" {
		backendCfg.DataSheet = *sheet
	}
	if backendCfg.Type == backend.SQLiteBackend {
		// Importing the database into itself is a no-op; read the export instead.
		backendCfg.Type = backend.FileBackend
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create import source", log.FieldError, err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() { _ = result.Cleanup() }()
	}

	start := time.Now()
	table, err := result.Source.Load(ctx)
	if err != nil {
		logger.Error("Failed to read dataset",
			log.FieldError, err,
			log.FieldSource, result.Source.Name(),
			log.FieldErrorType, log.ErrorTypeMalformed)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	run, err := repo.ReplaceOrders(ctx, result.Source.Name(), table.All().Records())
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, log.FieldOperation, log.OpImport)
		os.Exit(1)
	}

	logger.Info("Import complete",
		log.FieldOperation, log.OpImport,
		log.FieldSource, run.Source,
		log.FieldRows, run.RowCount,
		log.FieldRangeStart, run.MinTs,
		log.FieldRangeEnd, run.MaxTs,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"path", cfg.SQLiteDBPath)
}
