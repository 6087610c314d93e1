package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// NamedSink binds a signal/outcome destination to a backend name
// ("kafka", "clickhouse", "postgres").
type NamedSink struct {
	Name     string
	Signals  domrepo.SignalSink
	Outcomes domrepo.OutcomeSink
}

// SignalEmitter routes ranked signals and backtest outcomes to every
// configured backend. One failing backend does not stop the others.
type SignalEmitter struct {
	sinks   []NamedSink
	metrics domrepo.Metrics
}

func NewSignalEmitter(metrics domrepo.Metrics, sinks ...NamedSink) *SignalEmitter {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &SignalEmitter{sinks: sinks, metrics: metrics}
}

// Backends lists the configured sink names.
func (e *SignalEmitter) Backends() []string {
	out := make([]string, 0, len(e.sinks))
	for _, s := range e.sinks {
		out = append(out, s.Name)
	}
	return out
}

func (e *SignalEmitter) SaveSignals(ctx context.Context, signals []models.RankedSignal) error {
	if len(signals) == 0 {
		return nil
	}
	var errs []error
	for _, s := range e.sinks {
		if s.Signals == nil {
			continue
		}
		start := time.Now()
		if err := s.Signals.SaveSignals(ctx, signals); err != nil {
			e.metrics.RecordError("emit_" + s.Name)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		e.metrics.RecordSignalsEmitted(s.Name, len(signals))
		e.metrics.RecordLatency("emit_"+s.Name, time.Since(start).Seconds())
	}
	return errors.Join(errs...)
}

func (e *SignalEmitter) SaveOutcomes(ctx context.Context, outcomes []models.BacktestOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	var errs []error
	for _, s := range e.sinks {
		if s.Outcomes == nil {
			continue
		}
		if err := s.Outcomes.SaveOutcomes(ctx, outcomes); err != nil {
			e.metrics.RecordError("outcomes_" + s.Name)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ domrepo.SignalSink  = (*SignalEmitter)(nil)
	_ domrepo.OutcomeSink = (*SignalEmitter)(nil)
)
