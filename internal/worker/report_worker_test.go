package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomdash/internal/amqp"
	"ecomdash/internal/core"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/services"
	"ecomdash/internal/sources"
	"ecomdash/internal/sources/memory"
	"ecomdash/internal/storage"
)

type capturePublisher struct {
	results []*amqp.ReportResult
	err     error
}

func (p *capturePublisher) PublishReportResult(_ context.Context, msg *amqp.ReportResult) error {
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, msg)
	return nil
}

type captureRecorder struct {
	runs []storage.ReportRun
}

func (r *captureRecorder) RecordReport(_ context.Context, run storage.ReportRun) error {
	r.runs = append(r.runs, run)
	return nil
}

func loadedDashboard(t *testing.T, m *metrics.Metrics) *services.DashboardService {
	t.Helper()
	store := memory.New(
		[]string{"o1", "c1", "rio", "RJ", "p1", "toys", "boleto", "2018-01-01 10:00:00"},
		[]string{"o2", "c2", "rio", "RJ", "p2", "toys", "voucher", "2018-01-03 10:00:00"},
	)
	svc := services.NewDashboardService(sources.FromReader("memory", store), services.DashboardOptions{
		Metrics: m,
		Logger:  log.New(log.Config{Output: io.Discard}),
	})
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestHandleReportRequest(t *testing.T) {
	m := metrics.New()
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	w := NewReportWorker(loadedDashboard(t, m), pub, rec, m)

	msg := &amqp.ReportRequest{CorrelationID: uuid.NewString(), Start: "2018-01-01", End: "2018-01-02"}
	require.NoError(t, w.HandleReportRequest(context.Background(), msg))

	require.Len(t, pub.results, 1)
	res := pub.results[0]
	assert.Equal(t, amqp.StatusOK, res.Status)
	assert.Equal(t, msg.CorrelationID, res.CorrelationID)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, 1, res.Snapshot.TotalOrders)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, storage.ReportRun{
		CorrelationID: msg.CorrelationID,
		RangeStart:    "2018-01-01",
		RangeEnd:      "2018-01-02",
		RowCount:      1,
		TotalOrders:   1,
		Status:        amqp.StatusOK,
	}, rec.runs[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues(services.OriginWorker, metrics.OutcomeOK)))
}

func TestHandleReportRequestAppliesTopN(t *testing.T) {
	m := metrics.New()
	pub := &capturePublisher{}
	w := NewReportWorker(loadedDashboard(t, m), pub, nil, m)

	msg := &amqp.ReportRequest{CorrelationID: uuid.NewString(), TopN: 1}
	require.NoError(t, w.HandleReportRequest(context.Background(), msg))

	require.Len(t, pub.results, 1)
	snap := pub.results[0].Snapshot
	require.NotNil(t, snap)
	assert.Equal(t, core.Aggregate{{Key: "p1", Count: 1}}, snap.ByProduct)
	assert.Equal(t, core.Aggregate{{Key: "rio", Count: 2}}, snap.ByCity)
	assert.Len(t, snap.ByCategory, 1)
	assert.Len(t, snap.ByPayment, 2)
	assert.Equal(t, 2, snap.TotalOrders)
}

func TestHandleReportRequestOpenRangeUsesBounds(t *testing.T) {
	m := metrics.New()
	pub := &capturePublisher{}
	w := NewReportWorker(loadedDashboard(t, m), pub, nil, m)

	require.NoError(t, w.HandleReportRequest(context.Background(), &amqp.ReportRequest{CorrelationID: uuid.NewString()}))
	require.Len(t, pub.results, 1)
	assert.Equal(t, core.DateRange{Start: core.NewDate(2018, 1, 1), End: core.NewDate(2018, 1, 3)}, pub.results[0].Snapshot.Range)
}

func TestHandleReportRequestRejectsReversedRange(t *testing.T) {
	m := metrics.New()
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	w := NewReportWorker(loadedDashboard(t, m), pub, rec, m)

	msg := &amqp.ReportRequest{CorrelationID: uuid.NewString(), Start: "2018-01-03", End: "2018-01-01"}
	// Acknowledged: retrying can never help.
	require.NoError(t, w.HandleReportRequest(context.Background(), msg))

	require.Len(t, pub.results, 1)
	assert.Equal(t, amqp.StatusRejected, pub.results[0].Status)
	assert.Nil(t, pub.results[0].Snapshot)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, amqp.StatusRejected, rec.runs[0].Status)
	assert.Equal(t, "2018-01-03", rec.runs[0].RangeStart)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues(metrics.OutcomeInvalidRange)))
}

func TestHandleReportRequestRetriesWhenNotLoaded(t *testing.T) {
	m := metrics.New()
	svc := services.NewDashboardService(sources.FromReader("memory", memory.New()), services.DashboardOptions{
		Metrics: m,
		Logger:  log.New(log.Config{Output: io.Discard}),
	})
	pub := &capturePublisher{}
	w := NewReportWorker(svc, pub, nil, m)

	err := w.HandleReportRequest(context.Background(), &amqp.ReportRequest{CorrelationID: uuid.NewString()})
	assert.ErrorIs(t, err, services.ErrNotLoaded)
	assert.Empty(t, pub.results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues(metrics.OutcomeError)))
}

func TestHandleReportRequestPublishFailure(t *testing.T) {
	m := metrics.New()
	pub := &capturePublisher{err: errors.New("channel closed")}
	w := NewReportWorker(loadedDashboard(t, m), pub, nil, m)

	err := w.HandleReportRequest(context.Background(), &amqp.ReportRequest{CorrelationID: uuid.NewString()})
	assert.ErrorContains(t, err, "publish report result")
}
