package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/dedup"
	"FinSignal/internal/services/entry"
	"FinSignal/internal/services/scoring"
	applogger "FinSignal/pkg/logger"
)

// SymbolSkip records a symbol that produced no signal.
type SymbolSkip struct {
	Symbol   string         `json:"symbol"`
	NoSignal entry.NoSignal `json:"no_signal"`
}

// SymbolFailure records a collaborator failure for one symbol.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// CycleReport is the result of one generation cycle.
type CycleReport struct {
	At         time.Time             `json:"at"`
	Signals    []models.RankedSignal `json:"signals"`
	Candidates int                   `json:"candidates"`
	Skips      []SymbolSkip          `json:"skips,omitempty"`
	Failures   []SymbolFailure       `json:"failures,omitempty"`
	Cancelled  []string              `json:"cancelled,omitempty"`
	Duration   time.Duration         `json:"duration"`
}

// symbolRunner evaluates one symbol; *SymbolPipeline is the production one.
type symbolRunner interface {
	Run(ctx context.Context, symbol string, at time.Time) SymbolResult
}

// SignalGenerator fans symbols out to a fixed worker pool and joins the
// survivors before deduplication and ranking.
type SignalGenerator struct {
	pipeline symbolRunner
	scorer   *scoring.Scorer
	dedup    *dedup.Filter
	locker   SymbolLocker
	sink     domrepo.SignalSink
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	workers  int
}

type GeneratorOption func(*SignalGenerator)

// WithWorkers sets the pool size.
func WithWorkers(n int) GeneratorOption {
	return func(g *SignalGenerator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLocker replaces the in-process symbol locker.
func WithLocker(l SymbolLocker) GeneratorOption {
	return func(g *SignalGenerator) {
		if l != nil {
			g.locker = l
		}
	}
}

// WithSink sets where RunCycle publishes ranked signals.
func WithSink(s domrepo.SignalSink) GeneratorOption {
	return func(g *SignalGenerator) { g.sink = s }
}

func NewSignalGenerator(pipeline *SymbolPipeline, filter *dedup.Filter, metrics domrepo.Metrics, logger *applogger.Logger, opts ...GeneratorOption) *SignalGenerator {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	g := &SignalGenerator{
		pipeline: pipeline,
		scorer:   pipeline.Scorer(),
		dedup:    filter,
		locker:   NewLocalLocker(),
		metrics:  metrics,
		logger:   logger,
		workers:  4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RunCycle generates signals at the instant and publishes them to the sink.
// A sink failure is returned alongside the report.
func (g *SignalGenerator) RunCycle(ctx context.Context, symbols []string, at time.Time) (*CycleReport, error) {
	rep := g.Generate(ctx, symbols, at)
	if g.sink != nil && len(rep.Signals) > 0 {
		if err := g.sink.SaveSignals(context.WithoutCancel(ctx), rep.Signals); err != nil {
			g.metrics.RecordError("signal_sink")
			g.logger.Error("save signals failed", applogger.Error(err), applogger.Int("signals", len(rep.Signals)))
			return rep, err
		}
	}
	return rep, ctx.Err()
}

// Generate runs every symbol and returns the deduplicated, ranked signals.
// Cancellation is honoured between symbols only; a symbol already in
// progress completes.
func (g *SignalGenerator) Generate(ctx context.Context, symbols []string, at time.Time) *CycleReport {
	start := time.Now()
	if at.IsZero() {
		at = start
	}
	at = at.UTC()

	jobs := make(chan string)
	results := make(chan SymbolResult, len(symbols))
	cancelled := make(chan string, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				if ctx.Err() != nil {
					cancelled <- sym
					continue
				}
				results <- g.runSymbol(ctx, sym, at)
			}
		}()
	}

	go func() {
		for _, sym := range symbols {
			jobs <- sym
		}
		close(jobs)
		wg.Wait()
		close(results)
		close(cancelled)
	}()

	rep := &CycleReport{At: at}
	var cands []models.SignalCandidate
	for res := range results {
		switch {
		case res.Err != nil:
			g.metrics.RecordSymbolResult("failure")
			g.logger.Warn("symbol failed", applogger.String("symbol", res.Symbol), applogger.Error(res.Err))
			rep.Failures = append(rep.Failures, SymbolFailure{Symbol: res.Symbol, Error: res.Err.Error()})
		case res.NoSignal != nil:
			g.metrics.RecordSymbolResult("no_signal")
			g.metrics.RecordRejection(string(res.NoSignal.Stage))
			g.logger.Debug("no signal",
				applogger.String("symbol", res.Symbol),
				applogger.String("stage", string(res.NoSignal.Stage)),
				applogger.String("reason", string(res.NoSignal.Reason)),
			)
			rep.Skips = append(rep.Skips, SymbolSkip{Symbol: res.Symbol, NoSignal: *res.NoSignal})
		case res.Candidate != nil:
			g.metrics.RecordSymbolResult("candidate")
			cands = append(cands, *res.Candidate)
		}
	}
	for sym := range cancelled {
		rep.Cancelled = append(rep.Cancelled, sym)
	}

	// Worker completion order is arbitrary; sort the per-symbol lists so
	// reports are reproducible.
	sort.Slice(rep.Skips, func(i, j int) bool { return rep.Skips[i].Symbol < rep.Skips[j].Symbol })
	sort.Slice(rep.Failures, func(i, j int) bool { return rep.Failures[i].Symbol < rep.Failures[j].Symbol })
	sort.Strings(rep.Cancelled)

	rep.Candidates = len(cands)
	rep.Signals = g.scorer.Rank(g.dedup.Apply(cands))
	rep.Duration = time.Since(start)

	g.metrics.RecordCycle(len(symbols), rep.Duration.Seconds())
	g.logger.Info("cycle complete",
		applogger.Time("at", at),
		applogger.Int("symbols", len(symbols)),
		applogger.Int("candidates", rep.Candidates),
		applogger.Int("signals", len(rep.Signals)),
		applogger.Int("failures", len(rep.Failures)),
		applogger.Duration("duration", rep.Duration),
	)
	return rep
}

func (g *SignalGenerator) runSymbol(ctx context.Context, symbol string, at time.Time) SymbolResult {
	unlock, err := g.locker.Lock(ctx, symbol)
	if err != nil {
		return SymbolResult{Symbol: symbol, Err: err}
	}
	defer unlock()

	start := time.Now()
	res := g.pipeline.Run(context.WithoutCancel(ctx), symbol, at)
	g.metrics.RecordLatency("symbol_pipeline_seconds", time.Since(start).Seconds())
	return res
}
