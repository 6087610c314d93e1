package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/backtest"
	"FinSignal/internal/services/dedup"
	applogger "FinSignal/pkg/logger"
)

// ErrInvalidParams marks caller errors in use case parameters.
var ErrInvalidParams = errors.New("invalid parameters")

// BacktestParams describes one replay run.
type BacktestParams struct {
	Symbols []string
	From    time.Time
	To      time.Time
	Step    time.Duration
	Mode    models.BacktestMode
}

func (p BacktestParams) validate() error {
	switch {
	case len(p.Symbols) == 0:
		return fmt.Errorf("%w: at least one symbol required", ErrInvalidParams)
	case p.From.IsZero() || p.To.IsZero():
		return fmt.Errorf("%w: from and to required", ErrInvalidParams)
	case !p.To.After(p.From):
		return fmt.Errorf("%w: to must be after from", ErrInvalidParams)
	case p.Step <= 0:
		return fmt.Errorf("%w: step must be positive", ErrInvalidParams)
	}
	return nil
}

// BacktestRunner replays historical generation cycles and resolves each
// emitted signal against subsequent bars.
type BacktestRunner struct {
	generator *SignalGenerator
	market    domrepo.MarketData
	simulator *backtest.Simulator
	dedup     *dedup.Filter
	outcomes  domrepo.OutcomeSink
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	replayTF  models.Timeframe
	workers   int
	maxSteps  int
}

type BacktestOption func(*BacktestRunner)

// WithOutcomeSink persists outcomes after each run.
func WithOutcomeSink(s domrepo.OutcomeSink) BacktestOption {
	return func(r *BacktestRunner) { r.outcomes = s }
}

// WithReplayTimeframe sets the bar resolution used to walk outcomes. The
// part of the first bucket after the signal is walked on 15m bars, so a
// coarse bar never contributes price action from before creation.
func WithReplayTimeframe(tf models.Timeframe) BacktestOption {
	return func(r *BacktestRunner) {
		if tf.IsValid() {
			r.replayTF = tf
		}
	}
}

// WithReplayWorkers bounds concurrent replays.
func WithReplayWorkers(n int) BacktestOption {
	return func(r *BacktestRunner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMaxSteps bounds the number of generation instants in one run.
func WithMaxSteps(n int) BacktestOption {
	return func(r *BacktestRunner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

func NewBacktestRunner(gen *SignalGenerator, market domrepo.MarketData, sim *backtest.Simulator, filter *dedup.Filter, metrics domrepo.Metrics, logger *applogger.Logger, opts ...BacktestOption) *BacktestRunner {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	r := &BacktestRunner{
		generator: gen,
		market:    market,
		simulator: sim,
		dedup:     filter,
		metrics:   metrics,
		logger:    logger,
		replayTF:  models.TF1h,
		workers:   8,
		maxSteps:  5000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run steps through [From, To], collects the signals each historical cycle
// would have emitted and replays them.
func (r *BacktestRunner) Run(ctx context.Context, p BacktestParams) (*models.BacktestReport, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.From, p.To = p.From.UTC(), p.To.UTC()

	steps := int(p.To.Sub(p.From)/p.Step) + 1
	if steps > r.maxSteps {
		return nil, fmt.Errorf("%w: %d steps exceeds limit %d", ErrInvalidParams, steps, r.maxSteps)
	}

	sim := r.simulator
	if p.Mode != "" && p.Mode != sim.Config().Mode {
		cfg := sim.Config()
		cfg.Mode = p.Mode
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		sim = backtest.NewSimulator(cfg)
	}

	var cands []models.SignalCandidate
	for at := p.From; !at.After(p.To); at = at.Add(p.Step) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep := r.generator.Generate(ctx, p.Symbols, at)
		for _, s := range rep.Signals {
			cands = append(cands, s.SignalCandidate)
		}
	}
	// Consecutive instants often see the same trigger bar.
	cands = r.dedup.Apply(cands)
	signals := make([]models.RankedSignal, len(cands))
	for i, c := range cands {
		signals[i] = models.RankedSignal{SignalCandidate: c, Rank: i + 1}
	}

	outcomes := make([]models.BacktestOutcome, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range cands {
		i := i
		g.Go(func() error {
			o, err := r.replay(gctx, sim, cands[i])
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		r.metrics.RecordOutcome(string(o.Status))
	}
	if r.outcomes != nil && len(outcomes) > 0 {
		if err := r.outcomes.SaveOutcomes(ctx, outcomes); err != nil {
			r.metrics.RecordError("outcome_sink")
			return nil, fmt.Errorf("save outcomes: %w", err)
		}
	}

	stats := backtest.Aggregate(outcomes)
	r.logger.Info("backtest complete",
		applogger.Time("from", p.From),
		applogger.Time("to", p.To),
		applogger.String("mode", string(sim.Config().Mode)),
		applogger.Int("signals", len(signals)),
		applogger.Any("counts", stats.CountByStatus),
	)
	return &models.BacktestReport{
		From:     p.From,
		To:       p.To,
		Mode:     sim.Config().Mode,
		Signals:  signals,
		Outcomes: outcomes,
		Stats:    stats,
	}, nil
}

// replay fetches one bar past the expiry window so a fully covered window
// is recognisable from the last timestamp. A bar closing at T covers
// (T-d, T], so coarse bars are only used from the first bucket boundary at
// or after CreatedAt.
func (r *BacktestRunner) replay(ctx context.Context, sim *backtest.Simulator, sig models.SignalCandidate) (models.BacktestOutcome, error) {
	end := sig.CreatedAt.Add(sim.Config().Expiry)
	d := r.replayTF.Duration()

	var bars []models.Bar
	boundary := models.AlignToTimeframe(sig.CreatedAt, r.replayTF)
	if boundary.Before(sig.CreatedAt) {
		boundary = boundary.Add(d)
		if r.replayTF != models.TF15m {
			head, err := r.market.GetBars(ctx, sig.Symbol, models.TF15m, sig.CreatedAt, boundary)
			if err != nil {
				return models.BacktestOutcome{}, fmt.Errorf("replay %s: %w", sig.Symbol, err)
			}
			bars = append(bars, head.Bars...)
		}
	}

	tail, err := r.market.GetBars(ctx, sig.Symbol, r.replayTF, boundary, end.Add(d))
	if err != nil {
		return models.BacktestOutcome{}, fmt.Errorf("replay %s: %w", sig.Symbol, err)
	}
	for _, b := range tail.Bars {
		if b.Timestamp.After(boundary) {
			bars = append(bars, b)
		}
	}
	return sim.Replay(sig, bars, time.Time{}), nil
}
