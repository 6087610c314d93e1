package indicators

import (
	"errors"
	"fmt"

	"FinSignal/internal/domain/models"
)

// ErrInsufficientData is returned when a window is shorter than the longest
// lookback. It means "no signal this cycle", not a failure.
var ErrInsufficientData = errors.New("insufficient data")

// Config holds indicator periods.
type Config struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	MAFast     int
	MASlow     int
	ATRPeriod  int
}

// DefaultConfig returns RSI(14), MACD 12/26/9, MA 20/50 and ATR(14).
func DefaultConfig() Config {
	return Config{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		MAFast:     20,
		MASlow:     50,
		ATRPeriod:  14,
	}
}

// Validate checks period relationships.
func (c Config) Validate() error {
	if c.RSIPeriod <= 0 || c.ATRPeriod <= 0 || c.MACDSignal <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if c.MACDFast <= 0 || c.MACDFast >= c.MACDSlow {
		return fmt.Errorf("macd fast (%d) must be positive and below slow (%d)", c.MACDFast, c.MACDSlow)
	}
	if c.MAFast <= 0 || c.MAFast >= c.MASlow {
		return fmt.Errorf("ma fast (%d) must be positive and below slow (%d)", c.MAFast, c.MASlow)
	}
	return nil
}

// RequiredBars is the longest lookback across all indicators.
func (c Config) RequiredBars() int {
	need := c.RSIPeriod + 1
	need = max(need, c.MACDSlow+c.MACDSignal-1)
	need = max(need, c.MASlow)
	need = max(need, c.ATRPeriod+1)
	return need
}

// Engine computes indicator sets for bar series.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine periods.
func (e *Engine) Config() Config { return e.cfg }

// Compute calculates every indicator over the series. A series with gaps is
// computed and flagged low-confidence.
func (e *Engine) Compute(series models.BarSeries) (*models.IndicatorSet, error) {
	if series.Len() < e.cfg.RequiredBars() {
		return nil, fmt.Errorf("%s %s: have %d bars, need %d: %w",
			series.Symbol, series.Timeframe, series.Len(), e.cfg.RequiredBars(), ErrInsufficientData)
	}
	closes := series.Closes()
	macd := MACD(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	last, _ := series.Last()

	return &models.IndicatorSet{
		Symbol:        series.Symbol,
		Timeframe:     series.Timeframe,
		LastTimestamp: last.Timestamp,
		Len:           series.Len(),
		RSI:           RSI(closes, e.cfg.RSIPeriod),
		MACD:          macd.MACD,
		MACDSignal:    macd.Signal,
		MACDHist:      macd.Hist,
		SMAFast:       SMA(closes, e.cfg.MAFast),
		SMASlow:       SMA(closes, e.cfg.MASlow),
		EMAFast:       EMA(closes, e.cfg.MAFast),
		EMASlow:       EMA(closes, e.cfg.MASlow),
		ATR:           ATR(series.Bars, e.cfg.ATRPeriod),
		Pivots:        FloorPivots(series.Bars),
		LowConfidence: series.LowConfidence(),
		GapCount:      len(series.Gaps),
	}, nil
}
