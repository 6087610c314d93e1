package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// CHSignalStore persists ranked signals and backtest outcomes in ClickHouse.
type CHSignalStore struct {
	db       *sql.DB
	signals  string
	outcomes string
}

func NewCHSignalStore(db *sql.DB, database string) *CHSignalStore {
	return &CHSignalStore{db: db, signals: database + ".signals", outcomes: database + ".backtest_outcomes"}
}

func (s *CHSignalStore) SaveSignals(ctx context.Context, signals []models.RankedSignal) error {
	if len(signals) == 0 {
		return nil
	}
	values := make([]string, 0, len(signals))
	args := make([]interface{}, 0, len(signals)*18)
	for _, sig := range signals {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			sig.ID,
			sig.Symbol,
			string(sig.Direction),
			chainStrings(sig.TimeframeChain),
			sig.EntryPrice,
			sig.StopPrice,
			sig.TargetPrice,
			sig.Components.Technical,
			sig.Components.Sentiment,
			sig.Components.News,
			sig.Components.Volume,
			sig.Components.Pattern,
			sig.Confidence,
			sig.RiskReward,
			string(sig.Regime),
			boolToUInt8(sig.LowConfidence),
			uint16(sig.Rank),
			sig.CreatedAt.UTC(),
		)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, direction, timeframe_chain, entry_price, stop_price, target_price,
technical, sentiment, news, volume, pattern, confidence, risk_reward, regime, low_confidence, rank, created_at) VALUES %s`,
		s.signals, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert signals: %w", err)
	}
	return nil
}

func (s *CHSignalStore) SaveOutcomes(ctx context.Context, outcomes []models.BacktestOutcome) error {
	for start := 0; start < len(outcomes); start += insertChunk {
		end := min(start+insertChunk, len(outcomes))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, o := range outcomes[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				o.SignalID,
				o.Symbol,
				string(o.Direction),
				string(o.Mode),
				string(o.Status),
				o.SignalCreatedAt.UTC(),
				o.EntryPrice,
				o.TargetPrice,
				o.StopPrice,
				o.ExecutionPrice,
				o.ExecutionTime,
				int64(o.HoldingDuration.Seconds()),
				o.ReturnPct,
			)
		}
		q := fmt.Sprintf(`INSERT INTO %s (signal_id, symbol, direction, mode, status, signal_created_at, entry_price,
target_price, stop_price, execution_price, execution_time, holding_seconds, return_pct) VALUES %s`,
			s.outcomes, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert outcomes: %w", err)
		}
	}
	return nil
}

func chainStrings(chain []models.Timeframe) []string {
	out := make([]string, len(chain))
	for i, tf := range chain {
		out[i] = string(tf)
	}
	return out
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var (
	_ domrepo.SignalSink  = (*CHSignalStore)(nil)
	_ domrepo.OutcomeSink = (*CHSignalStore)(nil)
)
