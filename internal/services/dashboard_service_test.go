package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomdash/internal/core"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/sources"
	"ecomdash/internal/sources/memory"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard, Component: log.ComponentApp})
}

func orderRows() [][]string {
	return [][]string{
		{"o1", "c1", "sao paulo", "SP", "p1", "books", "credit_card", "2018-01-01 10:00:00"},
		{"o2", "c2", "rio", "RJ", "p2", "toys", "boleto", "2018-01-02 10:00:00"},
		{"o3", "c3", "rio", "RJ", "p1", "books", "credit_card", "2018-01-04 10:00:00"},
	}
}

func newDashboard(t *testing.T) (*DashboardService, *memory.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New(orderRows()...)
	m := metrics.New()
	svc := NewDashboardService(sources.FromReader("memory", store), DashboardOptions{
		TopN:      3,
		CacheSize: 4,
		Metrics:   m,
		Logger:    quietLogger(),
	})
	return svc, store, m
}

func TestDashboardService_NotLoaded(t *testing.T) {
	svc, _, _ := newDashboard(t)
	assert.False(t, svc.Ready())

	_, err := svc.Compute(context.Background(), core.DateRange{}, OriginHTTP)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = svc.Bounds()
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestDashboardService_ComputeDefaultsToBounds(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newDashboard(t)
	require.NoError(t, svc.Load(ctx))
	assert.True(t, svc.Ready())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DatasetRows))

	res, err := svc.Compute(ctx, core.DateRange{}, OriginHTTP)
	require.NoError(t, err)

	want := core.DateRange{Start: core.NewDate(2018, 1, 1), End: core.NewDate(2018, 1, 4)}
	assert.Equal(t, want, res.Snapshot.Range)
	assert.Equal(t, 3, res.Snapshot.TotalOrders)
	assert.Equal(t, 3, res.View.TotalOrders)
	assert.Equal(t, "rio", res.View.City.Bars[0].Label)
}

func TestDashboardService_CachesByResolvedRange(t *testing.T) {
	ctx := context.Background()
	svc, store, m := newDashboard(t)
	require.NoError(t, svc.Load(ctx))

	first, err := svc.Compute(ctx, core.DateRange{}, OriginHTTP)
	require.NoError(t, err)
	// Same range spelled out explicitly hits the same entry.
	second, err := svc.Compute(ctx, first.Snapshot.Range, OriginHTTP)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues(OriginHTTP, metrics.OutcomeOK)))
	assert.Equal(t, 1, store.Reads())
}

func TestDashboardService_InvalidRange(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newDashboard(t)
	require.NoError(t, svc.Load(ctx))

	_, err := svc.Compute(ctx, core.DateRange{Start: core.NewDate(2018, 1, 4), End: core.NewDate(2018, 1, 1)}, OriginWorker)
	var ire *core.InvalidRangeError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues(OriginWorker, metrics.OutcomeInvalidRange)))
	assert.Zero(t, svc.Cache().Size())
}

func TestDashboardService_ReloadPurgesCache(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newDashboard(t)
	require.NoError(t, svc.Load(ctx))

	before, err := svc.Compute(ctx, core.DateRange{}, OriginHTTP)
	require.NoError(t, err)

	store.Replace(append(orderRows(), []string{"o4", "c4", "rio", "RJ", "p3", "toys", "voucher", "2018-01-04 12:00:00"})...)
	require.NoError(t, svc.Load(ctx))
	assert.Zero(t, svc.Cache().Size())

	after, err := svc.Compute(ctx, core.DateRange{}, OriginHTTP)
	require.NoError(t, err)
	assert.Equal(t, before.Snapshot.TotalOrders+1, after.Snapshot.TotalOrders)
}

func TestDashboardService_ComputeAfterReloadSkipsOldFlight(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newDashboard(t)
	require.NoError(t, svc.Load(ctx))
	old, err := svc.Table()
	require.NoError(t, err)

	r := core.DateRange{Start: core.NewDate(2018, 1, 1), End: core.NewDate(2018, 1, 4)}
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = svc.group.Do(flightKey(old, r), func() (interface{}, error) {
			close(started)
			<-release
			return Result{}, nil
		})
	}()
	<-started

	store.Replace(append(orderRows(), []string{"o4", "c4", "rio", "RJ", "p3", "toys", "voucher", "2018-01-04 12:00:00"})...)
	require.NoError(t, svc.Load(ctx))

	res, err := svc.Compute(ctx, r, OriginHTTP)
	close(release)
	<-done
	require.NoError(t, err)
	assert.Equal(t, 4, res.Snapshot.TotalOrders)
}

func TestDashboardService_FailedReloadKeepsTable(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newDashboard(t)
	require.NoError(t, svc.Load(ctx))

	store.Replace([]string{"o9", "c9", "rio", "RJ", "p1", "toys", "boleto", "not a time"})
	err := svc.Load(ctx)
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	tbl, err := svc.Table()
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
}

func TestDashboardService_ConcurrentCompute(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newDashboard(t)
	require.NoError(t, svc.Load(ctx))

	r := core.DateRange{Start: core.NewDate(2018, 1, 2), End: core.NewDate(2018, 1, 4)}
	results := make([]Result, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Compute(ctx, r, OriginHTTP)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results[1:] {
		assert.Equal(t, results[0], res)
	}
	assert.Equal(t, 2, results[0].Snapshot.TotalOrders)
}
