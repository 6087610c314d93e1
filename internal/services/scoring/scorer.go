package scoring

import (
	"fmt"
	"math"
	"sort"

	"FinSignal/internal/domain/models"
	"FinSignal/internal/services/entry"
)

type Config struct {
	Weights        FactorWeights
	MinConfidence  float64
	MinRiskReward  float64
	TopK           int
	GapPenalty     float64
	VolumeRatioCap float64
	// PatternMultiplier scales the pattern component per regime; missing
	// regimes use 1.
	PatternMultiplier map[models.Regime]float64
}

func DefaultConfig() Config {
	return Config{
		Weights:        DefaultWeights(),
		MinConfidence:  0.70,
		MinRiskReward:  3.0,
		TopK:           10,
		GapPenalty:     0.85,
		VolumeRatioCap: 3.0,
		PatternMultiplier: map[models.Regime]float64{
			models.RegimeSideways: 0.5,
			models.RegimeVolatile: 0.8,
		},
	}
}

// Inputs are the per-candidate external factors. Nil scores are treated as
// neutral.
type Inputs struct {
	Sentiment *float64
	News      *float64
	Regime    models.RegimeResult
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", cfg.TopK)
	}
	return &Scorer{cfg: cfg}, nil
}

func (s *Scorer) Config() Config { return s.cfg }

// Score turns a validated setup into a candidate. It fails only when the
// setup's price geometry is invalid.
func (s *Scorer) Score(setup *entry.Setup, in Inputs) (models.SignalCandidate, error) {
	comp := s.Components(setup, in)
	w := s.cfg.Weights
	conf := w.Technical*comp.Technical +
		w.Sentiment*comp.Sentiment +
		w.News*comp.News +
		w.Volume*comp.Volume +
		w.Pattern*comp.Pattern

	low := setup.LowConfidence || in.Regime.LowConfidence
	if setup.LowConfidence {
		conf *= s.cfg.GapPenalty
	}

	return models.NewSignalCandidate(models.CandidateParams{
		Symbol:         setup.Symbol,
		Direction:      setup.Direction,
		TimeframeChain: setup.TimeframeChain,
		Entry:          setup.Entry,
		Stop:           setup.Stop,
		Target:         setup.Target,
		Components:     comp,
		Confidence:     clamp01(conf),
		Regime:         in.Regime.Regime,
		LowConfidence:  low,
		CreatedAt:      setup.TriggerAt,
	})
}

// Components computes each factor in [0,1].
func (s *Scorer) Components(setup *entry.Setup, in Inputs) models.ComponentScores {
	sign := setup.Direction.Sign()

	patternConf := 0.0
	for _, p := range setup.Patterns {
		patternConf = math.Max(patternConf, p.Confidence)
	}
	if m, ok := s.cfg.PatternMultiplier[in.Regime.Regime]; ok {
		patternConf *= m
	}

	return models.ComponentScores{
		Technical: clamp01(setup.TechnicalStrength),
		Sentiment: normalize(in.Sentiment, sign),
		News:      normalize(in.News, sign),
		Volume:    s.volumeScore(setup.VolumeRatios),
		Pattern:   clamp01(patternConf),
	}
}

// Pass reports whether a candidate clears both quality gates.
func (s *Scorer) Pass(c models.SignalCandidate) bool {
	return c.Confidence >= s.cfg.MinConfidence && c.RiskReward >= s.cfg.MinRiskReward
}

// Gate drops candidates failing either threshold.
func (s *Scorer) Gate(cands []models.SignalCandidate) []models.SignalCandidate {
	out := make([]models.SignalCandidate, 0, len(cands))
	for _, c := range cands {
		if s.Pass(c) {
			out = append(out, c)
		}
	}
	return out
}

// Rank sorts candidates and keeps the top K with 1-based ranks.
func (s *Scorer) Rank(cands []models.SignalCandidate) []models.RankedSignal {
	sorted := make([]models.SignalCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Outranks(sorted[j]) })
	if len(sorted) > s.cfg.TopK {
		sorted = sorted[:s.cfg.TopK]
	}
	out := make([]models.RankedSignal, len(sorted))
	for i, c := range sorted {
		out[i] = models.RankedSignal{SignalCandidate: c, Rank: i + 1}
	}
	return out
}

func (s *Scorer) volumeScore(ratios []float64) float64 {
	if len(ratios) == 0 || s.cfg.VolumeRatioCap <= 1 {
		return 0
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	mean := sum / float64(len(ratios))
	return clamp01((mean - 1) / (s.cfg.VolumeRatioCap - 1))
}

// normalize maps [-1,1] onto [0,1], mirrored for shorts. Missing is 0.5.
func normalize(score *float64, sign float64) float64 {
	if score == nil || math.IsNaN(*score) {
		return 0.5
	}
	v := math.Max(-1, math.Min(1, *score)) * sign
	return (v + 1) / 2
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
