package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ecomdash/internal/analytics"
	"ecomdash/internal/cache"
	"ecomdash/internal/core"
	"ecomdash/internal/dashboard"
	"ecomdash/internal/dataset"
	"ecomdash/internal/log"
	"ecomdash/internal/metrics"
	"ecomdash/internal/sources"
)

// ErrNotLoaded is returned before the first successful Load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Callers recorded on snapshot metrics.
const (
	OriginHTTP   = "http"
	OriginWorker = "worker"
)

// Result is one computed range: the aggregates and the view built from them.
type Result struct {
	Snapshot core.Snapshot
	View     dashboard.ViewModel
}

type DashboardOptions struct {
	TopN      int
	CacheSize int
	CacheTTL  time.Duration
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

// DashboardService owns the loaded base table and serves computed ranges.
// The table is swapped atomically on reload and never mutated in place.
type DashboardService struct {
	source  sources.Source
	table   atomic.Pointer[dataset.Table]
	cache   *cache.LRUCache[string, Result]
	group   singleflight.Group
	topN    int
	metrics *metrics.Metrics
	logger  *log.Logger
	events  *log.StructuredLogger
}

func NewDashboardService(src sources.Source, opts DashboardOptions) *DashboardService {
	if opts.TopN <= 0 {
		opts.TopN = dashboard.DefaultTopN
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentPipeline)

	s := &DashboardService{
		source:  src,
		cache:   cache.NewLRUCache[string, Result](opts.CacheSize, opts.CacheTTL),
		topN:    opts.TopN,
		metrics: opts.Metrics,
		logger:  logger,
		events:  log.NewStructuredLogger(logger),
	}
	s.cache.OnEvict = func(string) { s.metrics.CacheEvictions.Inc() }
	return s
}

// Cache exposes the result cache so a cache.Manager can expire it.
func (s *DashboardService) Cache() *cache.LRUCache[string, Result] { return s.cache }

// Load reads the source into a new base table and makes it current. On
// failure the previous table, if any, stays in service.
func (s *DashboardService) Load(ctx context.Context) error {
	start := time.Now()
	tbl, err := s.source.Load(ctx)
	if err != nil {
		s.events.LogError(ctx, "Dataset load failed", err, log.ComponentDataset, log.OpLoad,
			log.NewFields().WithRange("", ""))
		return fmt.Errorf("load %s: %w", s.source.Name(), err)
	}

	s.table.Store(tbl)
	s.cache.Purge()
	s.metrics.DatasetRows.Set(float64(tbl.Len()))

	b := tbl.Bounds()
	s.logger.InfoContext(ctx, "Dataset loaded",
		log.FieldSource, s.source.Name(),
		log.FieldRows, tbl.Len(),
		log.FieldRangeStart, b.Start.String(),
		log.FieldRangeEnd, b.End.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Ready reports whether a base table is loaded.
func (s *DashboardService) Ready() bool { return s.table.Load() != nil }

// Table returns the current base table.
func (s *DashboardService) Table() (*dataset.Table, error) {
	t := s.table.Load()
	if t == nil {
		return nil, ErrNotLoaded
	}
	return t, nil
}

// Bounds returns the min and max purchase day of the loaded table.
func (s *DashboardService) Bounds() (core.DateRange, error) {
	t, err := s.Table()
	if err != nil {
		return core.DateRange{}, err
	}
	return t.Bounds(), nil
}

// Compute filters and aggregates r, serving repeated ranges from cache.
// Concurrent misses for the same range share one computation. Invalid ranges
// fail with *core.InvalidRangeError and are never cached.
func (s *DashboardService) Compute(ctx context.Context, r core.DateRange, origin string) (Result, error) {
	t, err := s.Table()
	if err != nil {
		return Result{}, err
	}
	r = t.Resolve(r)
	if err := r.Validate(); err != nil {
		s.metrics.ObserveSnapshot(origin, metrics.OutcomeInvalidRange, 0, 0)
		return Result{}, err
	}

	key := r.Key()
	if res, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return res, nil
	}
	s.metrics.CacheMiss()

	v, err, _ := s.group.Do(flightKey(t, r), func() (interface{}, error) {
		start := time.Now()
		snap, err := analytics.Compute(t, r)
		took := time.Since(start)
		if err != nil {
			s.metrics.ObserveSnapshot(origin, metrics.OutcomeError, 0, took)
			return Result{}, err
		}
		res := Result{Snapshot: snap, View: dashboard.Render(snap, s.topN)}
		// A reload during the computation must not resurrect the old table's result.
		if s.table.Load() == t {
			s.cache.Set(key, res)
		}
		s.metrics.ObserveSnapshot(origin, metrics.OutcomeOK, snap.Rows, took)
		s.events.LogSnapshot(ctx, r.Start.String(), r.End.String(), snap.Rows, snap.TotalOrders, took.Milliseconds())
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// flightKey scopes in-flight computations to one table, so a caller that
// arrives after a reload never joins a computation over the old table.
func flightKey(t *dataset.Table, r core.DateRange) string {
	return fmt.Sprintf("%p/%s", t, r.Key())
}
