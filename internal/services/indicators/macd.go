package indicators

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD   []float64
	Signal []float64
	Hist   []float64
}

// MACD computes EMA(fast)-EMA(slow) with an EMA(signal) signal line.
// The MACD line starts at slow-1 and the signal line at slow+signal-2.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:   make([]float64, n),
		Signal: make([]float64, n),
		Hist:   make([]float64, n),
	}
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow {
		return res
	}
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	start := slow - 1
	for i := start; i < n; i++ {
		res.MACD[i] = emaFast[i] - emaSlow[i]
	}
	res.Signal = emaFrom(res.MACD, signal, start)
	sigStart := start + signal - 1
	for i := sigStart; i < n; i++ {
		res.Hist[i] = res.MACD[i] - res.Signal[i]
	}
	return res
}

// CrossedAbove reports whether a moved from <= b to > b between i-1 and i.
func CrossedAbove(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

// CrossedBelow reports whether a moved from >= b to < b between i-1 and i.
func CrossedBelow(a, b []float64, i int) bool {
	if i < 1 || i >= len(a) || i >= len(b) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}
