package indicators

import (
	"time"

	"FinSignal/internal/domain/models"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(tf models.Timeframe, closes []float64) models.BarSeries {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Symbol: "BTCUSDT", Timeframe: tf,
			Timestamp: t0.Add(time.Duration(i) * tf.Duration()),
			Open:      c, High: c * 1.001, Low: c * 0.999, Close: c, Volume: 100,
		}
	}
	s, err := models.NewBarSeries("BTCUSDT", tf, bars)
	if err != nil {
		panic(err)
	}
	return s
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
