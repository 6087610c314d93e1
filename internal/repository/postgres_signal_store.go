package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
)

// PGSchema creates the signal and outcome tables.
var PGSchema = []string{
	`CREATE TABLE IF NOT EXISTS signals (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	timeframe_chain TEXT[] NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	stop_price DOUBLE PRECISION NOT NULL,
	target_price DOUBLE PRECISION NOT NULL,
	component_scores JSONB NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	risk_reward DOUBLE PRECISION NOT NULL,
	regime TEXT NOT NULL,
	low_confidence BOOLEAN NOT NULL,
	rank INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS signals_symbol_created_idx ON signals (symbol, created_at)`,
	`CREATE TABLE IF NOT EXISTS backtest_outcomes (
	signal_id UUID NOT NULL,
	mode TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	signal_created_at TIMESTAMPTZ NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	target_price DOUBLE PRECISION NOT NULL,
	stop_price DOUBLE PRECISION NOT NULL,
	execution_price DOUBLE PRECISION,
	execution_time TIMESTAMPTZ,
	holding_seconds BIGINT NOT NULL,
	return_pct DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (signal_id, mode)
)`,
}

const (
	insertSignalSQL = `INSERT INTO signals (id, symbol, direction, timeframe_chain, entry_price, stop_price, target_price,
component_scores, confidence, risk_reward, regime, low_confidence, rank, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`

	upsertOutcomeSQL = `INSERT INTO backtest_outcomes (signal_id, mode, symbol, direction, status, signal_created_at,
entry_price, target_price, stop_price, execution_price, execution_time, holding_seconds, return_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (signal_id, mode) DO UPDATE SET status = EXCLUDED.status,
execution_price = EXCLUDED.execution_price, execution_time = EXCLUDED.execution_time,
holding_seconds = EXCLUDED.holding_seconds, return_pct = EXCLUDED.return_pct`
)

// pgConn is the subset of pgxpool.Pool the store uses.
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PGSignalStore persists signals and outcomes in Postgres.
type PGSignalStore struct {
	conn pgConn
}

// NewPGPool connects a pgx pool and pings it.
func NewPGPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

func NewPGSignalStore(pool *pgxpool.Pool) *PGSignalStore {
	return &PGSignalStore{conn: pool}
}

// InitSchema applies PGSchema.
func (s *PGSignalStore) InitSchema(ctx context.Context) error {
	for _, stmt := range PGSchema {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PGSignalStore) SaveSignals(ctx context.Context, signals []models.RankedSignal) error {
	if len(signals) == 0 {
		return nil
	}
	return s.send(ctx, signalBatch(signals))
}

func (s *PGSignalStore) SaveOutcomes(ctx context.Context, outcomes []models.BacktestOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	return s.send(ctx, outcomeBatch(outcomes))
}

func (s *PGSignalStore) send(ctx context.Context, b *pgx.Batch) error {
	br := s.conn.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return br.Close()
}

func signalBatch(signals []models.RankedSignal) *pgx.Batch {
	b := &pgx.Batch{}
	for _, sig := range signals {
		b.Queue(insertSignalSQL,
			sig.ID,
			sig.Symbol,
			string(sig.Direction),
			chainStrings(sig.TimeframeChain),
			sig.EntryPrice,
			sig.StopPrice,
			sig.TargetPrice,
			sig.Components,
			sig.Confidence,
			sig.RiskReward,
			string(sig.Regime),
			sig.LowConfidence,
			sig.Rank,
			sig.CreatedAt.UTC(),
		)
	}
	return b
}

func outcomeBatch(outcomes []models.BacktestOutcome) *pgx.Batch {
	b := &pgx.Batch{}
	for _, o := range outcomes {
		b.Queue(upsertOutcomeSQL,
			o.SignalID,
			string(o.Mode),
			o.Symbol,
			string(o.Direction),
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
	return b
}

var (
	_ domrepo.SignalSink  = (*PGSignalStore)(nil)
	_ domrepo.OutcomeSink = (*PGSignalStore)(nil)
)
