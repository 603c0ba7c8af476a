package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ecomdash/internal/amqp"
	"ecomdash/internal/core"
	"ecomdash/internal/storage"
)

// ErrReportsDisabled is returned when no broker is configured.
var ErrReportsDisabled = errors.New("report queue not configured")

// Report run statuses stored in report_runs.
const (
	ReportPending = "pending"
)

// ReportPublisher is the part of the AMQP client the service needs.
type ReportPublisher interface {
	PublishReportRequest(ctx context.Context, msg *amqp.ReportRequest) error
	Close() error
}

// ReportStore persists report runs.
type ReportStore interface {
	RecordReport(ctx context.Context, run storage.ReportRun) error
	GetReport(ctx context.Context, correlationID string) (storage.ReportRun, error)
}

// ReportService queues dashboard reports for the worker.
type ReportService struct {
	publisher ReportPublisher
	store     ReportStore
	topN      int
}

// NewReportService accepts nil for either dependency. Without a publisher
// every enqueue fails with ErrReportsDisabled; without a store runs are
// not tracked.
func NewReportService(publisher ReportPublisher, store ReportStore, topN int) *ReportService {
	return &ReportService{publisher: publisher, store: store, topN: topN}
}

// Enabled reports whether requests can be queued.
func (s *ReportService) Enabled() bool { return s.publisher != nil }

// Enqueue records a pending run and publishes the request. A reversed
// range is refused here so it never reaches the queue.
func (s *ReportService) Enqueue(ctx context.Context, r core.DateRange, topN int) (*amqp.ReportRequest, error) {
	if s.publisher == nil {
		return nil, ErrReportsDisabled
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = s.topN
	}

	msg := amqp.NewReportRequest(r, topN)
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if s.store != nil {
		run := storage.ReportRun{
			CorrelationID: msg.CorrelationID,
			RangeStart:    msg.Start,
			RangeEnd:      msg.End,
			Status:        ReportPending,
		}
		if err := s.store.RecordReport(ctx, run); err != nil {
			return nil, fmt.Errorf("save report run: %w", err)
		}
	}

	if err := s.publisher.PublishReportRequest(ctx, msg); err != nil {
		if s.store != nil {
			failed := storage.ReportRun{
				CorrelationID: msg.CorrelationID,
				RangeStart:    msg.Start,
				RangeEnd:      msg.End,
				Status:        amqp.StatusFailed,
				Error:         err.Error(),
			}
			if serr := s.store.RecordReport(ctx, failed); serr != nil {
				slog.ErrorContext(ctx, "Failed to mark report run failed",
					"correlation_id", msg.CorrelationID, "error", serr)
			}
		}
		return nil, fmt.Errorf("publish report request: %w", err)
	}
	return msg, nil
}

// Get returns a tracked run.
func (s *ReportService) Get(ctx context.Context, correlationID string) (storage.ReportRun, error) {
	if s.store == nil {
		return storage.ReportRun{}, ErrReportsDisabled
	}
	return s.store.GetReport(ctx, correlationID)
}

// Close closes the publisher. The store is owned by the caller.
func (s *ReportService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close report service: %w", err)
	}
	return nil
}
