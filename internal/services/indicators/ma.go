package indicators

// SMA computes the simple moving average. Values before index period-1 are zero.
func SMA(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	sum := 0.0
	for i := 0; i < len(data); i++ {
		sum += data[i]
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average seeded with the SMA of the
// first period values.
func EMA(data []float64, period int) []float64 {
	return emaFrom(data, period, 0)
}

// emaFrom computes an EMA over data[start:], leaving earlier indices zero.
func emaFrom(data []float64, period, start int) []float64 {
	out := make([]float64, len(data))
	if period <= 0 || start < 0 || len(data)-start < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += data[i]
	}
	seed := start + period - 1
	out[seed] = sum / float64(period)

	for i := seed + 1; i < len(data); i++ {
		out[i] = data[i]*k + out[i-1]*(1-k)
	}
	return out
}
