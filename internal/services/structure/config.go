package structure

// Config holds detector thresholds. Fractions are of price (0.001 = 0.1%).
type Config struct {
	VolumeWindow int

	BOSLookback   int
	BOSMinBreak   float64
	BOSVolumeMult float64

	CHoCHLookback    int
	CHoCHMinReversal float64
	CHoCHVolumeMult  float64
	CHoCHConfirmBars int

	OBMinBody          float64
	OBMinConsolidation int
	OBMaxRange         float64
	OBVolumeMult       float64

	FVGMinGap     float64
	FVGVolumeMult float64

	SweepMinExceed  float64
	SweepVolumeMult float64
	SweepSwingBars  int

	ConfidenceCap float64
}

func DefaultConfig() Config {
	return Config{
		VolumeWindow: 10,

		BOSLookback:   20,
		BOSMinBreak:   0.001,
		BOSVolumeMult: 1.2,

		CHoCHLookback:    50,
		CHoCHMinReversal: 0.002,
		CHoCHVolumeMult:  1.2,
		CHoCHConfirmBars: 3,

		OBMinBody:          0.02,
		OBMinConsolidation: 3,
		OBMaxRange:         0.01,
		OBVolumeMult:       1.5,

		FVGMinGap:     0.0005,
		FVGVolumeMult: 1.2,

		SweepMinExceed:  0.0005,
		SweepVolumeMult: 1.8,
		SweepSwingBars:  3,

		ConfidenceCap: 0.95,
	}
}

// confidence is monotonic non-decreasing in both magnitude and volume ratio
// and never exceeds cap.
func confidence(mag, magRef, volRatio, volRef, cap float64) float64 {
	score := 0.5*sat(mag/(4*magRef)) + 0.5*sat(volRatio/(2*volRef))
	if score > cap {
		return cap
	}
	return score
}

func sat(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
