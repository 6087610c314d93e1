package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// WeightsVersion is the only factor table layout understood by this build.
const WeightsVersion = 1

var (
	ErrUnknownFactor      = errors.New("unknown scoring factor")
	ErrMissingFactor      = errors.New("missing scoring factor")
	ErrUnsupportedVersion = errors.New("unsupported weights version")
	ErrWeightSum          = errors.New("factor weights must sum to 1")
)

const (
	FactorTechnical = "technical"
	FactorSentiment = "sentiment"
	FactorNews      = "news"
	FactorVolume    = "volume"
	FactorPattern   = "pattern"
)

var knownFactors = []string{FactorTechnical, FactorSentiment, FactorNews, FactorVolume, FactorPattern}

// FactorWeights is the explicit, versioned weight table.
type FactorWeights struct {
	Version   int     `json:"version"`
	Technical float64 `json:"technical"`
	Sentiment float64 `json:"sentiment"`
	News      float64 `json:"news"`
	Volume    float64 `json:"volume"`
	Pattern   float64 `json:"pattern"`
}

// DefaultWeights returns technical 35%, sentiment 25%, news 15%, volume 15%, pattern 10%.
func DefaultWeights() FactorWeights {
	return FactorWeights{
		Version:   WeightsVersion,
		Technical: 0.35,
		Sentiment: 0.25,
		News:      0.15,
		Volume:    0.15,
		Pattern:   0.10,
	}
}

// ParseWeights builds a table from raw config. Every known factor must be
// present; any other key is rejected.
func ParseWeights(version int, raw map[string]float64) (FactorWeights, error) {
	if version != WeightsVersion {
		return FactorWeights{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	var unknown []string
	for k := range raw {
		if !isKnown(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return FactorWeights{}, fmt.Errorf("%w: %s", ErrUnknownFactor, strings.Join(unknown, ", "))
	}
	for _, k := range knownFactors {
		if _, ok := raw[k]; !ok {
			return FactorWeights{}, fmt.Errorf("%w: %s", ErrMissingFactor, k)
		}
	}
	w := FactorWeights{
		Version:   version,
		Technical: raw[FactorTechnical],
		Sentiment: raw[FactorSentiment],
		News:      raw[FactorNews],
		Volume:    raw[FactorVolume],
		Pattern:   raw[FactorPattern],
	}
	return w, w.Validate()
}

// Validate checks for negative weights and a unit sum.
func (w FactorWeights) Validate() error {
	if w.Version != WeightsVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.Version)
	}
	sum := 0.0
	for k, v := range w.asMap() {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", k, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: got %.6f", ErrWeightSum, sum)
	}
	return nil
}

func (w FactorWeights) asMap() map[string]float64 {
	return map[string]float64{
		FactorTechnical: w.Technical,
		FactorSentiment: w.Sentiment,
		FactorNews:      w.News,
		FactorVolume:    w.Volume,
		FactorPattern:   w.Pattern,
	}
}

func isKnown(k string) bool {
	for _, f := range knownFactors {
		if f == k {
			return true
		}
	}
	return false
}
