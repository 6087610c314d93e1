package models

import (
	"fmt"
	"time"
)

// Bar is one OHLCV record. Timestamp is the bar close time in UTC.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Range returns high minus low.
func (b Bar) Range() float64 { return b.High - b.Low }

// Body returns the absolute open-close distance.
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Bullish reports a close above the open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports a close below the open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Validate checks OHLC consistency.
func (b Bar) Validate() error {
	if b.Symbol == "" {
		return ErrEmptySymbol
	}
	if !b.Timeframe.IsValid() {
		return fmt.Errorf("bar %s: unsupported timeframe %q", b.Symbol, b.Timeframe)
	}
	if b.Timestamp.IsZero() {
		return fmt.Errorf("bar %s: missing timestamp", b.Symbol)
	}
	if b.Low <= 0 || b.High < b.Low || b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s@%s: inconsistent OHLC", b.Symbol, b.Timestamp.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume", b.Symbol, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// Gap marks missing bars between two consecutive timestamps.
type Gap struct {
	After   time.Time `json:"after"`
	Before  time.Time `json:"before"`
	Missing int       `json:"missing"`
}

// BarSeries is an ordered window of bars for one symbol and timeframe.
type BarSeries struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Bars      []Bar     `json:"bars"`
	Gaps      []Gap     `json:"gaps,omitempty"`
}

// NewBarSeries validates ordering and derives gaps.
func NewBarSeries(symbol string, tf Timeframe, bars []Bar) (BarSeries, error) {
	s := BarSeries{Symbol: symbol, Timeframe: tf, Bars: bars}
	if err := s.Validate(); err != nil {
		return BarSeries{}, err
	}
	s.Gaps = DetectGaps(bars, tf)
	return s, nil
}

// Validate enforces strictly ascending, duplicate-free timestamps.
func (s BarSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Timestamp.After(s.Bars[i-1].Timestamp) {
			return fmt.Errorf("%s %s at index %d: %w", s.Symbol, s.Timeframe, i, ErrUnorderedSeries)
		}
	}
	return nil
}

// Len returns the number of bars.
func (s BarSeries) Len() int { return len(s.Bars) }

// LowConfidence reports whether the series has missing bars.
func (s BarSeries) LowConfidence() bool { return len(s.Gaps) > 0 }

// Last returns the most recent bar.
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes extracts close prices.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Tail returns a series over the last n bars. Gaps are recomputed.
func (s BarSeries) Tail(n int) BarSeries {
	if n >= len(s.Bars) || n < 0 {
		return s
	}
	bars := s.Bars[len(s.Bars)-n:]
	return BarSeries{Symbol: s.Symbol, Timeframe: s.Timeframe, Bars: bars, Gaps: DetectGaps(bars, s.Timeframe)}
}

// DetectGaps returns every step between consecutive bars larger than one bar.
func DetectGaps(bars []Bar, tf Timeframe) []Gap {
	step := tf.Duration()
	if step <= 0 {
		return nil
	}
	var gaps []Gap
	for i := 1; i < len(bars); i++ {
		d := bars[i].Timestamp.Sub(bars[i-1].Timestamp)
		if d <= step {
			continue
		}
		missing := int(d/step) - 1
		if missing < 1 {
			missing = 1
		}
		gaps = append(gaps, Gap{After: bars[i-1].Timestamp, Before: bars[i].Timestamp, Missing: missing})
	}
	return gaps
}
