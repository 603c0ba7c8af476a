package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSnapshot(t *testing.T) {
	m := New()

	m.ObserveSnapshot("http", OutcomeOK, 120, 3*time.Millisecond)
	m.ObserveSnapshot("http", OutcomeOK, 0, time.Millisecond)
	m.ObserveSnapshot("worker", OutcomeInvalidRange, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Snapshots.WithLabelValues("http", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues("worker", OutcomeInvalidRange)))
	// Rejected ranges are not timed.
	assert.Equal(t, uint64(2), histogramCount(t, m, "ecomdash_snapshot_duration_seconds"))
}

func histogramCount(t *testing.T, m *Metrics, name string) uint64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestCacheCounters(t *testing.T) {
	m := New()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.DatasetRows.Set(42)
	m.ObserveHTTP("/ui/dashboard", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ecomdash_dataset_rows 42")
	assert.Contains(t, string(body), `ecomdash_http_requests_total{code="200",route="/ui/dashboard"} 1`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.CacheHit()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheRequests.WithLabelValues("hit")))
}
