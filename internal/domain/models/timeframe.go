package models

import (
	"fmt"
	"time"
)

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// AllTimeframes lists supported timeframes from the highest to the lowest.
var AllTimeframes = []Timeframe{TF1d, TF4h, TF1h, TF15m}

// IsValid returns true if tf is a supported timeframe.
func (tf Timeframe) IsValid() bool {
	switch tf {
	case TF15m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// Duration returns the length of one bar.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// BarsPerYear is used to annualize per-bar volatility. Crypto markets trade 24/7.
func (tf Timeframe) BarsPerYear() float64 {
	d := tf.Duration()
	if d <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}

// ParseTimeframe converts raw string into a supported timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}

// AlignToTimeframe truncates t (UTC) to the start of its bucket.
func AlignToTimeframe(t time.Time, tf Timeframe) time.Time {
	d := tf.Duration()
	if d <= 0 {
		return t.UTC()
	}
	return t.UTC().Truncate(d)
}
