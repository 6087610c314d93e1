package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// BarWriter is the minimal store the pipeline needs.
type BarWriter interface {
	StoreBars(ctx context.Context, bars []models.Bar) error
}

// Invalidator drops derived state for a series once a new bar lands.
type Invalidator interface {
	Invalidate(ctx context.Context, symbol string, tf models.Timeframe) error
}

// BarPipeline sits between the ingest consumer and bar storage.
// It validates bars, drops duplicate or out-of-order ones per series, and
// buffers when storage is unavailable.
type BarPipeline struct {
	store       BarWriter
	invalidator Invalidator
	metrics     domrepo.Metrics
	bufSize     int
	bufCh       chan models.Bar
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex
	lastSeen    map[seriesKey]time.Time
}

type seriesKey struct {
	symbol string
	tf     models.Timeframe
}

type PipelineOption func(*BarPipeline)

// WithBufferSize sets the temporary buffer size when storage is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *BarPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithInvalidator registers a cache invalidation hook.
func WithInvalidator(inv Invalidator) PipelineOption {
	return func(p *BarPipeline) { p.invalidator = inv }
}

func NewBarPipeline(store BarWriter, metrics domrepo.Metrics, opts ...PipelineOption) *BarPipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &BarPipeline{
		store:    store,
		metrics:  metrics,
		bufSize:  1000,
		stopCh:   make(chan struct{}),
		lastSeen: make(map[seriesKey]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Bar, p.bufSize)
	return p
}

// Start launches background flushing of buffered bars.
func (p *BarPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case b := <-p.bufCh:
				if err := p.write(ctx, b); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- b:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
						p.forget(b)
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *BarPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Buffered returns the number of bars waiting for storage.
func (p *BarPipeline) Buffered() int { return len(p.bufCh) }

// Process validates and forwards a bar. Duplicates and out-of-order bars are
// dropped without error; a storage failure buffers the bar and is returned.
// A bar only counts as seen once it is stored or buffered, so a redelivery
// after a full buffer is processed again.
func (p *BarPipeline) Process(ctx context.Context, b models.Bar) error {
	start := time.Now()
	b.Timestamp = b.Timestamp.UTC()
	if err := b.Validate(); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.fresh(b) {
		p.metrics.RecordError("pipeline_stale")
		return nil
	}

	if err := p.write(ctx, b); err != nil {
		p.metrics.RecordError("pipeline_store")
		select {
		case p.bufCh <- b:
			p.mark(b)
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.mark(b)
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func (p *BarPipeline) write(ctx context.Context, b models.Bar) error {
	if err := p.store.StoreBars(ctx, []models.Bar{b}); err != nil {
		return err
	}
	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx, b.Symbol, b.Timeframe); err != nil {
			p.metrics.RecordError("pipeline_invalidate")
		}
	}
	return nil
}

// fresh reports whether b is newer than the last bar seen for its series.
func (p *BarPipeline) fresh(b models.Bar) bool {
	k := seriesKey{symbol: b.Symbol, tf: b.Timeframe}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[k]
	return !ok || b.Timestamp.After(last)
}

func (p *BarPipeline) mark(b models.Bar) {
	k := seriesKey{symbol: b.Symbol, tf: b.Timeframe}
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[k]; !ok || b.Timestamp.After(last) {
		p.lastSeen[k] = b.Timestamp
	}
}

// forget un-marks b when it was the newest bar seen and is being dropped.
func (p *BarPipeline) forget(b models.Bar) {
	k := seriesKey{symbol: b.Symbol, tf: b.Timeframe}
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastSeen[k]; ok && last.Equal(b.Timestamp) {
		delete(p.lastSeen, k)
	}
}
