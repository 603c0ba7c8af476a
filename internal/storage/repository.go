// Package storage persists imported order lines in SQLite so the dashboard can
// start without re-reading the original export.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ecomdash/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNoImport is returned when the database holds no imported dataset yet.
var ErrNoImport = errors.New("no dataset imported")

const timestampLayout = time.DateTime

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Name identifies the repository as a record source.
func (r *SQLiteRepository) Name() string { return "sqlite" }

// ReplaceOrders swaps the stored dataset for recs in one transaction and
// records the import run. recs must be non-empty.
func (r *SQLiteRepository) ReplaceOrders(ctx context.Context, source string, recs []core.OrderRecord) (ImportRun, error) {
	if len(recs) == 0 {
		return ImportRun{}, core.ErrEmptyDataset
	}

	run := ImportRun{
		ID:         uuid.NewString(),
		Source:     source,
		RowCount:   int64(len(recs)),
		MinTs:      recs[0].PurchasedAt.UTC().Format(timestampLayout),
		MaxTs:      recs[0].PurchasedAt.UTC().Format(timestampLayout),
		ImportedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	lines := make([]OrderLine, len(recs))
	for i, rec := range recs {
		ts := rec.PurchasedAt.UTC().Format(timestampLayout)
		if ts < run.MinTs {
			run.MinTs = ts
		}
		if ts > run.MaxTs {
			run.MaxTs = ts
		}
		lines[i] = OrderLine{
			OrderID:                rec.OrderID,
			CustomerID:             rec.CustomerID,
			CustomerCity:           rec.CustomerCity,
			CustomerState:          rec.CustomerState,
			ProductID:              rec.ProductID,
			ProductCategoryName:    rec.Category,
			PaymentType:            rec.PaymentType,
			OrderPurchaseTimestamp: ts,
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportRun{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllOrders(ctx); err != nil {
		return ImportRun{}, fmt.Errorf("clear previous import: %w", err)
	}
	if err := q.CreateImportRun(ctx, run); err != nil {
		return ImportRun{}, fmt.Errorf("create import run: %w", err)
	}
	if err := q.InsertOrderLines(ctx, run.ID, lines); err != nil {
		return ImportRun{}, fmt.Errorf("insert order lines: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ImportRun{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Dataset imported to SQLite",
		"component", "storage",
		"import_id", run.ID,
		"source", source,
		"rows", run.RowCount,
		"min_ts", run.MinTs,
		"max_ts", run.MaxTs)
	return run, nil
}

// Records returns the stored dataset as a header row plus one row per line,
// ready for dataset.FromRecords.
func (r *SQLiteRepository) Records(ctx context.Context) ([][]string, error) {
	lines, err := r.queries.ListOrderLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrNoImport
	}

	out := make([][]string, 0, len(lines)+1)
	out = append(out, append([]string(nil), core.RequiredColumns...))
	for _, l := range lines {
		out = append(out, []string{
			l.OrderID,
			l.CustomerID,
			l.CustomerCity,
			l.CustomerState,
			l.ProductID,
			l.ProductCategoryName,
			l.PaymentType,
			l.OrderPurchaseTimestamp,
		})
	}
	return out, nil
}

// LatestImport describes the dataset currently stored.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (ImportRun, error) {
	run, err := r.queries.LatestImportRun(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRun{}, ErrNoImport
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("latest import run: %w", err)
	}
	return run, nil
}

// CountOrders returns the number of stored order lines.
func (r *SQLiteRepository) CountOrders(ctx context.Context) (int64, error) {
	n, err := r.queries.CountOrderLines(ctx)
	if err != nil {
		return 0, fmt.Errorf("count order lines: %w", err)
	}
	return n, nil
}

// RecordReport stores the outcome of a queued report request. Redelivered
// requests overwrite their earlier row.
func (r *SQLiteRepository) RecordReport(ctx context.Context, run ReportRun) error {
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := r.queries.UpsertReportRun(ctx, run); err != nil {
		return fmt.Errorf("record report %s: %w", run.CorrelationID, err)
	}
	return nil
}

// GetReport looks up a report run by correlation id.
func (r *SQLiteRepository) GetReport(ctx context.Context, correlationID string) (ReportRun, error) {
	run, err := r.queries.GetReportRun(ctx, correlationID)
	if err != nil {
		return ReportRun{}, fmt.Errorf("get report %s: %w", correlationID, err)
	}
	return run, nil
}
