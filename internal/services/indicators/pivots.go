package indicators

import "FinSignal/internal/domain/models"

// FloorPivots computes classic pivot levels for each bar from the prior
// completed bar's high, low and close. Index 0 has no prior bar and is zero.
func FloorPivots(bars []models.Bar) []models.PivotLevels {
	out := make([]models.PivotLevels, len(bars))
	for i := 1; i < len(bars); i++ {
		out[i] = PivotFrom(bars[i-1].High, bars[i-1].Low, bars[i-1].Close)
	}
	return out
}

// PivotFrom computes P, R1, S1, R2, S2 from one period's H/L/C.
func PivotFrom(high, low, close float64) models.PivotLevels {
	p := (high + low + close) / 3
	return models.PivotLevels{
		P:  p,
		R1: 2*p - low,
		S1: 2*p - high,
		R2: p + (high - low),
		S2: p - (high - low),
	}
}

// Swing is a local extreme confirmed by bars on both sides.
type Swing struct {
	Index int
	Price float64
}

// FindSwingHighs returns bars whose high is strictly greater than the
// leftBars before and the rightBars after.
func FindSwingHighs(bars []models.Bar, leftBars, rightBars int) []Swing {
	var out []Swing
	for i := leftBars; i < len(bars)-rightBars; i++ {
		cur := bars[i].High
		ok := true
		for j := 1; j <= leftBars && ok; j++ {
			ok = bars[i-j].High < cur
		}
		for j := 1; j <= rightBars && ok; j++ {
			ok = bars[i+j].High < cur
		}
		if ok {
			out = append(out, Swing{Index: i, Price: cur})
		}
	}
	return out
}

// FindSwingLows mirrors FindSwingHighs on lows.
func FindSwingLows(bars []models.Bar, leftBars, rightBars int) []Swing {
	var out []Swing
	for i := leftBars; i < len(bars)-rightBars; i++ {
		cur := bars[i].Low
		ok := true
		for j := 1; j <= leftBars && ok; j++ {
			ok = bars[i-j].Low > cur
		}
		for j := 1; j <= rightBars && ok; j++ {
			ok = bars[i+j].Low > cur
		}
		if ok {
			out = append(out, Swing{Index: i, Price: cur})
		}
	}
	return out
}
