package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ecomdash/internal/amqp"
	"ecomdash/internal/analytics"
	"ecomdash/internal/core"
	"ecomdash/internal/metrics"
	"ecomdash/internal/services"
	"ecomdash/internal/storage"
)

// Computer is the part of the dashboard service the worker needs.
type Computer interface {
	Compute(ctx context.Context, r core.DateRange, origin string) (services.Result, error)
}

// ResultPublisher publishes finished reports.
type ResultPublisher interface {
	PublishReportResult(ctx context.Context, msg *amqp.ReportResult) error
}

// ReportRecorder persists report outcomes.
type ReportRecorder interface {
	RecordReport(ctx context.Context, run storage.ReportRun) error
}

// ReportWorker computes queued report requests and publishes the results.
type ReportWorker struct {
	dashboard Computer
	results   ResultPublisher
	recorder  ReportRecorder
	metrics   *metrics.Metrics
}

// NewReportWorker accepts a nil recorder when runs are not tracked.
func NewReportWorker(dashboard Computer, results ResultPublisher, recorder ReportRecorder, m *metrics.Metrics) *ReportWorker {
	if m == nil {
		m = metrics.New()
	}
	return &ReportWorker{
		dashboard: dashboard,
		results:   results,
		recorder:  recorder,
		metrics:   m,
	}
}

// HandleReportRequest processes a single report request from AMQP.
// Requests that can never succeed (a reversed range) are answered with a
// rejected result and acknowledged. Other failures are returned so the
// delivery is retried.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequest) error {
	slog.InfoContext(ctx, "Processing report request",
		"correlation_id", msg.CorrelationID,
		"range_start", msg.Start,
		"range_end", msg.End)

	r, err := msg.Range()
	if err != nil {
		return w.finish(ctx, msg, nil, fmt.Errorf("parse range: %w", err))
	}

	res, err := w.dashboard.Compute(ctx, r, services.OriginWorker)
	if err != nil {
		if errors.Is(err, core.ErrInvalidRange) {
			return w.finish(ctx, msg, nil, err)
		}
		w.metrics.Reports.WithLabelValues(metrics.OutcomeError).Inc()
		w.record(ctx, msg, storage.ReportRun{Status: amqp.StatusFailed, Error: err.Error()})
		return fmt.Errorf("compute report %s: %w", msg.CorrelationID, err)
	}

	snap := analytics.Truncate(res.Snapshot, msg.TopN)
	return w.finish(ctx, msg, &snap, nil)
}

func (w *ReportWorker) finish(ctx context.Context, msg *amqp.ReportRequest, snap *core.Snapshot, cause error) error {
	result := amqp.NewReportResult(msg.CorrelationID, snap, cause)
	if err := w.results.PublishReportResult(ctx, result); err != nil {
		w.metrics.Reports.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("publish report result: %w", err)
	}

	run := storage.ReportRun{Status: result.Status, Error: result.Error}
	outcome := metrics.OutcomeOK
	switch {
	case snap != nil:
		run.RangeStart = snap.Range.Start.String()
		run.RangeEnd = snap.Range.End.String()
		run.RowCount = int64(snap.Rows)
		run.TotalOrders = int64(snap.TotalOrders)
	case errors.Is(cause, core.ErrInvalidRange):
		outcome = metrics.OutcomeInvalidRange
	default:
		outcome = metrics.OutcomeError
	}
	w.metrics.Reports.WithLabelValues(outcome).Inc()
	w.record(ctx, msg, run)

	slog.InfoContext(ctx, "Report request completed",
		"correlation_id", msg.CorrelationID,
		"status", result.Status)
	return nil
}

// record is best effort; the result is already published.
func (w *ReportWorker) record(ctx context.Context, msg *amqp.ReportRequest, run storage.ReportRun) {
	if w.recorder == nil {
		return
	}
	run.CorrelationID = msg.CorrelationID
	if run.RangeStart == "" {
		run.RangeStart = msg.Start
	}
	if run.RangeEnd == "" {
		run.RangeEnd = msg.End
	}
	if err := w.recorder.RecordReport(ctx, run); err != nil {
		slog.ErrorContext(ctx, "Failed to record report run",
			"correlation_id", msg.CorrelationID,
			"error", err)
	}
}
