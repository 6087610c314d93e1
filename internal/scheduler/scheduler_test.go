package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinSignal/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCycles struct {
	mu    sync.Mutex
	calls []time.Time
	syms  [][]string
	err   error
}

func (f *fakeCycles) RunCycle(_ context.Context, symbols []string, at time.Time) (*usecase.CycleReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, at)
	f.syms = append(f.syms, symbols)
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.CycleReport{At: at}, nil
}

func (f *fakeCycles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestScheduler_RunNowTruncatesToMinute(t *testing.T) {
	fc := &fakeCycles{}
	s := NewScheduler(fc, []string{"AAPL", "MSFT"}, nil)
	s.now = func() time.Time { return time.Date(2024, 6, 3, 14, 7, 42, 0, time.FixedZone("X", 3600)) }

	s.RunNow()
	require.Equal(t, 1, fc.count())
	assert.Equal(t, time.Date(2024, 6, 3, 13, 7, 0, 0, time.UTC), fc.calls[0])
	assert.Equal(t, []string{"AAPL", "MSFT"}, fc.syms[0])
}

func TestScheduler_RunNowSurvivesCycleError(t *testing.T) {
	fc := &fakeCycles{err: errors.New("sink down")}
	s := NewScheduler(fc, []string{"AAPL"}, nil)
	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, 1, fc.count())
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(&fakeCycles{}, nil, nil)
	assert.NoError(t, s.Register(""))
	assert.NoError(t, s.Register("0 */15 * * * *"))
	assert.NoError(t, s.Register("*/15 * * * *"))
	assert.Error(t, s.Register("every quarter hour"))
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	fc := &fakeCycles{}
	s := NewScheduler(fc, []string{"AAPL"}, nil)
	require.NoError(t, s.Register("@every 1s"))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return fc.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
