package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ImportRun struct {
	ID         string
	Source     string
	RowCount   int64
	MinTs      string
	MaxTs      string
	ImportedAt string
}

type OrderLine struct {
	OrderID                string
	CustomerID             string
	CustomerCity           string
	CustomerState          string
	ProductID              string
	ProductCategoryName    string
	PaymentType            string
	OrderPurchaseTimestamp string
}

type ReportRun struct {
	CorrelationID string
	RangeStart    string
	RangeEnd      string
	RowCount      int64
	TotalOrders   int64
	Status        string
	Error         string
	CreatedAt     string
}

const createImportRun = `
INSERT INTO import_runs (id, source, row_count, min_ts, max_ts, imported_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateImportRun(ctx context.Context, arg ImportRun) error {
	_, err := q.db.ExecContext(ctx, createImportRun,
		arg.ID, arg.Source, arg.RowCount, arg.MinTs, arg.MaxTs, arg.ImportedAt)
	return err
}

const deleteImportRuns = `DELETE FROM import_runs`

const deleteOrderLines = `DELETE FROM order_lines`

func (q *Queries) DeleteAllOrders(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, deleteOrderLines); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, deleteImportRuns)
	return err
}

const insertOrderLine = `
INSERT INTO order_lines (
    import_id, order_id, customer_id, customer_city, customer_state,
    product_id, product_category_name, payment_type, order_purchase_timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertOrderLines prepares the insert once and runs it for every line.
func (q *Queries) InsertOrderLines(ctx context.Context, importID string, lines []OrderLine) error {
	stmt, err := q.db.PrepareContext(ctx, insertOrderLine)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx, importID,
			l.OrderID, l.CustomerID, l.CustomerCity, l.CustomerState,
			l.ProductID, l.ProductCategoryName, l.PaymentType, l.OrderPurchaseTimestamp,
		); err != nil {
			return err
		}
	}
	return nil
}

const listOrderLines = `
SELECT order_id, customer_id, customer_city, customer_state,
       product_id, product_category_name, payment_type, order_purchase_timestamp
FROM order_lines
ORDER BY order_purchase_timestamp, id
`

func (q *Queries) ListOrderLines(ctx context.Context) ([]OrderLine, error) {
	rows, err := q.db.QueryContext(ctx, listOrderLines)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderLine
	for rows.Next() {
		var i OrderLine
		if err := rows.Scan(
			&i.OrderID, &i.CustomerID, &i.CustomerCity, &i.CustomerState,
			&i.ProductID, &i.ProductCategoryName, &i.PaymentType, &i.OrderPurchaseTimestamp,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countOrderLines = `SELECT COUNT(*) FROM order_lines`

func (q *Queries) CountOrderLines(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countOrderLines).Scan(&n)
	return n, err
}

const latestImportRun = `
SELECT id, source, row_count, min_ts, max_ts, imported_at
FROM import_runs
ORDER BY imported_at DESC
LIMIT 1
`

func (q *Queries) LatestImportRun(ctx context.Context) (ImportRun, error) {
	var i ImportRun
	err := q.db.QueryRowContext(ctx, latestImportRun).Scan(
		&i.ID, &i.Source, &i.RowCount, &i.MinTs, &i.MaxTs, &i.ImportedAt)
	return i, err
}

const upsertReportRun = `
INSERT INTO report_runs (correlation_id, range_start, range_end, row_count, total_orders, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(correlation_id) DO UPDATE SET
    range_start = excluded.range_start,
    range_end = excluded.range_end,
    row_count = excluded.row_count,
    total_orders = excluded.total_orders,
    status = excluded.status,
    error = excluded.error
`

func (q *Queries) UpsertReportRun(ctx context.Context, arg ReportRun) error {
	_, err := q.db.ExecContext(ctx, upsertReportRun,
		arg.CorrelationID, arg.RangeStart, arg.RangeEnd, arg.RowCount,
		arg.TotalOrders, arg.Status, arg.Error, arg.CreatedAt)
	return err
}

const getReportRun = `
SELECT correlation_id, range_start, range_end, row_count, total_orders, status, error, created_at
FROM report_runs
WHERE correlation_id = ?
`

func (q *Queries) GetReportRun(ctx context.Context, correlationID string) (ReportRun, error) {
	var i ReportRun
	err := q.db.QueryRowContext(ctx, getReportRun, correlationID).Scan(
		&i.CorrelationID, &i.RangeStart, &i.RangeEnd, &i.RowCount,
		&i.TotalOrders, &i.Status, &i.Error, &i.CreatedAt)
	return i, err
}
