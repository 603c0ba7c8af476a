package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Loader is anything that can refresh its dataset.
type Loader interface {
	Load(ctx context.Context) error
}

// ReloadProcessor re-reads the dataset source on a fixed interval so an
// updated CSV or sheet shows up without a restart. A failed reload keeps
// the previous table.
type ReloadProcessor struct {
	loader   Loader
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	failures int
}

func NewReloadProcessor(loader Loader, interval time.Duration) *ReloadProcessor {
	return &ReloadProcessor{loader: loader, interval: interval}
}

// Start begins the reload loop. Returns an error if already running.
func (p *ReloadProcessor) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("reload interval must be positive, got %v", p.interval)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reload processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Reload processor started", "interval", p.interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion. Concurrent
// calls are safe; only the first one signals the loop.
func (p *ReloadProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.stopCh, p.doneCh = nil, nil
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reload processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reload processor stop timed out")
		return ctx.Err()
	}
}

func (p *ReloadProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Failures returns the number of consecutive failed reloads.
func (p *ReloadProcessor) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *ReloadProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reload(ctx)
		}
	}
}

func (p *ReloadProcessor) reload(ctx context.Context) {
	err := p.loader.Load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures++
		slog.WarnContext(ctx, "Dataset reload failed, keeping previous table",
			"error", err,
			"consecutive_failures", p.failures)
		return
	}
	p.failures = 0
}
