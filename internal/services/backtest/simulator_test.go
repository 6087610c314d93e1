package backtest

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
)

var created = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

func signal(t *testing.T, dir models.Direction, entry, stop, target float64) models.SignalCandidate {
	t.Helper()
	c, err := models.NewSignalCandidate(models.CandidateParams{
		Symbol: "BTCUSDT", Direction: dir, Entry: entry, Stop: stop, Target: target,
		Confidence: 0.8, CreatedAt: created,
	})
	require.NoError(t, err)
	return c
}

// path returns hourly bars after created with the given (low, high) pairs.
func path(pairs ...[2]float64) []models.Bar {
	out := make([]models.Bar, len(pairs))
	for i, p := range pairs {
		mid := (p[0] + p[1]) / 2
		out[i] = models.Bar{
			Symbol: "BTCUSDT", Timeframe: models.TF1h,
			Timestamp: created.Add(time.Duration(i+1) * time.Hour),
			Open:      mid, High: p[1], Low: p[0], Close: mid, Volume: 1,
		}
	}
	return out
}

func flatPath(from time.Time, n int, step time.Duration) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{Symbol: "BTCUSDT", Timeframe: models.TF1h,
			Timestamp: from.Add(time.Duration(i) * step), Open: 100, High: 101, Low: 99, Close: 100}
	}
	return out
}

func TestLevels_FixedPercentage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = models.ModeFixedPercentage
	sim := NewSimulator(cfg)

	target, stop := sim.Levels(signal(t, models.DirectionLong, 100, 95, 110))
	assert.InDelta(t, 160, target, 1e-9)
	assert.InDelta(t, 60, stop, 1e-9)

	target, stop = sim.Levels(signal(t, models.DirectionShort, 100, 105, 90))
	assert.InDelta(t, 40, target, 1e-9)
	assert.InDelta(t, 140, stop, 1e-9)
}

func TestReplay_TargetHit(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	sig := signal(t, models.DirectionLong, 100, 95, 110)
	bars := path([2]float64{98, 104}, [2]float64{101, 111}, [2]float64{90, 92})

	o := sim.Replay(sig, bars, time.Time{})
	assert.Equal(t, models.StatusTargetHit, o.Status)
	require.NotNil(t, o.ExecutionPrice)
	assert.InDelta(t, 110, *o.ExecutionPrice, 1e-9)
	require.NotNil(t, o.ExecutionTime)
	assert.Equal(t, bars[1].Timestamp, *o.ExecutionTime)
	assert.Equal(t, 2*time.Hour, o.HoldingDuration)
	assert.InDelta(t, 10, o.ReturnPct, 1e-9)
}

func TestReplay_StopHitShort(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	sig := signal(t, models.DirectionShort, 100, 105, 85)
	bars := path([2]float64{97, 103}, [2]float64{100, 106})

	o := sim.Replay(sig, bars, time.Time{})
	assert.Equal(t, models.StatusStopHit, o.Status)
	assert.InDelta(t, 105, *o.ExecutionPrice, 1e-9)
	assert.InDelta(t, -5, o.ReturnPct, 1e-9)
}

func TestReplay_SameBarTieBreak(t *testing.T) {
	sig := signal(t, models.DirectionLong, 100, 95, 110)
	bars := path([2]float64{94, 111})

	conservative := NewSimulator(DefaultConfig()).Replay(sig, bars, time.Time{})
	assert.Equal(t, models.StatusStopHit, conservative.Status)

	cfg := DefaultConfig()
	cfg.TieBreak = TieOptimistic
	optimistic := NewSimulator(cfg).Replay(sig, bars, time.Time{})
	assert.Equal(t, models.StatusTargetHit, optimistic.Status)
}

func TestReplay_ExpiredVersusPending(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	sig := signal(t, models.DirectionLong, 100, 95, 110)

	full := flatPath(created.Add(time.Hour), 8*24, time.Hour)
	expired := sim.Replay(sig, full, time.Time{})
	assert.Equal(t, models.StatusExpired, expired.Status)
	assert.Nil(t, expired.ExecutionPrice)
	assert.Nil(t, expired.ExecutionTime)

	partial := flatPath(created.Add(time.Hour), 48, time.Hour)
	pending := sim.Replay(sig, partial, time.Time{})
	assert.Equal(t, models.StatusPending, pending.Status)
	assert.Nil(t, pending.ExecutionPrice)

	// Explicit horizon past the window end means the quiet tail is known.
	known := sim.Replay(sig, partial, created.Add(8*24*time.Hour))
	assert.Equal(t, models.StatusExpired, known.Status)

	assert.Equal(t, models.StatusPending, sim.Replay(sig, nil, time.Time{}).Status)
}

func TestReplay_IgnoresBarsOutsideWindow(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	sig := signal(t, models.DirectionLong, 100, 95, 110)

	bars := []models.Bar{
		{Timestamp: created, Open: 100, High: 120, Low: 80, Close: 100},
	}
	bars = append(bars, flatPath(created.Add(time.Hour), 7*24, time.Hour)...)
	bars = append(bars, models.Bar{Timestamp: created.Add(7*24*time.Hour + time.Hour), Open: 100, High: 130, Low: 99, Close: 120})

	o := sim.Replay(sig, bars, time.Time{})
	assert.Equal(t, models.StatusExpired, o.Status)
}

func TestAggregate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	outcomes := []models.BacktestOutcome{
		{Status: models.StatusTargetHit, ReturnPct: 60, ExecutionPrice: f(160), HoldingDuration: 2 * time.Hour},
		{Status: models.StatusTargetHit, ReturnPct: 10, ExecutionPrice: f(110), HoldingDuration: 4 * time.Hour},
		{Status: models.StatusStopHit, ReturnPct: -40, ExecutionPrice: f(60), HoldingDuration: 6 * time.Hour},
		{Status: models.StatusExpired},
		{Status: models.StatusPending},
	}
	st := Aggregate(outcomes)
	assert.Equal(t, 5, st.Total)
	assert.InDelta(t, 2.0/3.0, st.WinRate, 1e-9)
	require.NotNil(t, st.ProfitFactor)
	assert.InDelta(t, 1.75, *st.ProfitFactor, 1e-9)
	assert.Equal(t, 2, st.CountByStatus[models.StatusTargetHit])
	assert.Equal(t, 1, st.CountByStatus[models.StatusStopHit])
	assert.Equal(t, 1, st.CountByStatus[models.StatusExpired])
	assert.Equal(t, 1, st.CountByStatus[models.StatusPending])
	assert.Equal(t, 4*time.Hour, st.AvgHolding)
	assert.InDelta(t, 10, st.AvgReturnPct, 1e-9)
}

func TestAggregate_NoLossesLeavesProfitFactorUndefined(t *testing.T) {
	st := Aggregate([]models.BacktestOutcome{{Status: models.StatusTargetHit, ReturnPct: 5}})
	assert.Nil(t, st.ProfitFactor)
	assert.Equal(t, 1.0, st.WinRate)

	empty := Aggregate(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 0.0, empty.WinRate)
	assert.Len(t, empty.CountByStatus, 4)
}

func TestWriteCSV(t *testing.T) {
	sim := NewSimulator(DefaultConfig())
	sig := signal(t, models.DirectionLong, 100, 95, 110)
	hit := sim.Replay(sig, path([2]float64{101, 111}), time.Time{})
	pending := sim.Replay(sig, nil, time.Time{})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.BacktestOutcome{hit, pending}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "TARGET_HIT", rows[1][4])
	assert.Equal(t, "110", rows[1][9])
	assert.Equal(t, "PENDING", rows[2][4])
	assert.Equal(t, "", rows[2][9])
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.TieBreak = "coin_flip"
	assert.Error(t, cfg.Validate())
}
