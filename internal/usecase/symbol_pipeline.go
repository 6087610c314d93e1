package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	"FinSignal/internal/services/entry"
	"FinSignal/internal/services/indicators"
	"FinSignal/internal/services/regime"
	"FinSignal/internal/services/scoring"
	"FinSignal/internal/services/structure"
)

// SymbolResult is the outcome of one symbol's pass. Exactly one of
// Candidate, NoSignal or Err is set.
type SymbolResult struct {
	Symbol    string
	Regime    models.RegimeResult
	Candidate *models.SignalCandidate
	NoSignal  *entry.NoSignal
	Err       error
}

// SymbolPipeline runs fetch, indicators, structure, regime, validation and
// scoring for one symbol at one instant.
type SymbolPipeline struct {
	market     domrepo.MarketData
	sentiment  domrepo.SentimentSource
	indicators *indicators.Cache
	detector   *structure.Detector
	classifier *regime.Classifier
	validator  *entry.Validator
	scorer     *scoring.Scorer
	lookback   int
	regimeTF   models.Timeframe
}

type PipelineOption func(*SymbolPipeline)

// WithLookback sets how many bars are fetched per timeframe.
func WithLookback(n int) PipelineOption {
	return func(p *SymbolPipeline) {
		if n > 0 {
			p.lookback = n
		}
	}
}

// WithRegimeTimeframe selects the timeframe the regime is classified on.
func WithRegimeTimeframe(tf models.Timeframe) PipelineOption {
	return func(p *SymbolPipeline) {
		if tf.IsValid() {
			p.regimeTF = tf
		}
	}
}

func NewSymbolPipeline(
	market domrepo.MarketData,
	sentiment domrepo.SentimentSource,
	ind *indicators.Cache,
	detector *structure.Detector,
	classifier *regime.Classifier,
	validator *entry.Validator,
	scorer *scoring.Scorer,
	opts ...PipelineOption,
) *SymbolPipeline {
	p := &SymbolPipeline{
		market:     market,
		sentiment:  sentiment,
		indicators: ind,
		detector:   detector,
		classifier: classifier,
		validator:  validator,
		scorer:     scorer,
		lookback:   200,
		regimeTF:   models.TF1d,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scorer exposes the scorer used for gating and ranking.
func (p *SymbolPipeline) Scorer() *scoring.Scorer { return p.scorer }

// Run evaluates symbol using only bars closed at or before at.
func (p *SymbolPipeline) Run(ctx context.Context, symbol string, at time.Time) SymbolResult {
	res := SymbolResult{Symbol: symbol}
	at = at.UTC()

	analyses := make(map[models.Timeframe]structure.Analysis, len(models.AllTimeframes))
	for _, tf := range models.AllTimeframes {
		from := at.Add(-time.Duration(p.lookback) * tf.Duration())
		series, err := p.market.GetBars(ctx, symbol, tf, from, at)
		if err != nil {
			res.Err = fmt.Errorf("get %s bars: %w", tf, err)
			return res
		}
		set, err := p.indicators.Get(ctx, series)
		if errors.Is(err, indicators.ErrInsufficientData) {
			res.NoSignal = &entry.NoSignal{
				Stage:  entry.StageData,
				Reason: entry.ReasonInsufficientData,
				Detail: fmt.Sprintf("%s: %d bars", tf, series.Len()),
			}
			return res
		}
		if err != nil {
			res.Err = fmt.Errorf("indicators %s: %w", tf, err)
			return res
		}
		analyses[tf] = p.detector.Analyze(series, set)
	}

	res.Regime = p.classifier.Classify(analyses[p.regimeTF].Series)

	out := p.validator.Validate(symbol, analyses)
	if !out.OK() {
		res.NoSignal = out.NoSignal
		return res
	}

	in := scoring.Inputs{Regime: res.Regime}
	if p.sentiment != nil {
		var err error
		if in.Sentiment, err = optional(p.sentiment.Sentiment(ctx, symbol, out.Setup.TriggerAt)); err != nil {
			res.Err = fmt.Errorf("sentiment: %w", err)
			return res
		}
		if in.News, err = optional(p.sentiment.News(ctx, symbol, out.Setup.TriggerAt)); err != nil {
			res.Err = fmt.Errorf("news: %w", err)
			return res
		}
	}

	cand, err := p.scorer.Score(out.Setup, in)
	if err != nil {
		res.NoSignal = &entry.NoSignal{Stage: entry.StageScoring, Reason: entry.ReasonInvalidGeometry, Detail: err.Error()}
		return res
	}
	if !p.scorer.Pass(cand) {
		res.NoSignal = &entry.NoSignal{
			Stage:  entry.StageScoring,
			Reason: entry.ReasonBelowGate,
			Detail: fmt.Sprintf("confidence=%.3f rr=%.2f", cand.Confidence, cand.RiskReward),
		}
		return res
	}
	res.Candidate = &cand
	return res
}

func optional(v float64, ok bool, err error) (*float64, error) {
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}
