package usecase

import (
	"context"
	"errors"
	"testing"

	"FinSignal/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalEmitter_FansOutAndJoinsErrors(t *testing.T) {
	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("timeout")}
	e := NewSignalEmitter(nil,
		NamedSink{Name: "kafka", Signals: bad},
		NamedSink{Name: "clickhouse", Signals: good, Outcomes: good},
	)
	assert.Equal(t, []string{"kafka", "clickhouse"}, e.Backends())

	sig := []models.RankedSignal{{SignalCandidate: *candidate(t, "AAPL", 0.9, t0), Rank: 1}}
	err := e.SaveSignals(context.Background(), sig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: timeout")
	require.Len(t, good.signals, 1)
	assert.Equal(t, sig, good.signals[0])

	outcomes := []models.BacktestOutcome{{SignalID: "x", Status: models.StatusExpired}}
	require.NoError(t, e.SaveOutcomes(context.Background(), outcomes))
	require.Len(t, good.outcomes, 1)
	assert.Empty(t, bad.outcomes)
}

func TestSignalEmitter_EmptyIsNoop(t *testing.T) {
	s := &recordingSink{}
	e := NewSignalEmitter(nil, NamedSink{Name: "kafka", Signals: s, Outcomes: s})
	require.NoError(t, e.SaveSignals(context.Background(), nil))
	require.NoError(t, e.SaveOutcomes(context.Background(), nil))
	assert.Empty(t, s.signals)
	assert.Empty(t, s.outcomes)
}
