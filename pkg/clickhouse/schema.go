package clickhouse

import "fmt"

// Schema returns the DDL for bars, emitted signals and backtest outcomes.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bars (
	symbol LowCardinality(String),
	timeframe LowCardinality(String),
	ts DateTime64(3, 'UTC'),
	open Float64,
	high Float64,
	low Float64,
	close Float64,
	volume Float64
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (symbol, timeframe, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signals (
	id String,
	symbol LowCardinality(String),
	direction LowCardinality(String),
	timeframe_chain Array(String),
	entry_price Float64,
	stop_price Float64,
	target_price Float64,
	technical Float64,
	sentiment Float64,
	news Float64,
	volume Float64,
	pattern Float64,
	confidence Float64,
	risk_reward Float64,
	regime LowCardinality(String),
	low_confidence UInt8,
	rank UInt16,
	created_at DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, created_at, id)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.backtest_outcomes (
	signal_id String,
	symbol LowCardinality(String),
	direction LowCardinality(String),
	mode LowCardinality(String),
	status LowCardinality(String),
	signal_created_at DateTime64(3, 'UTC'),
	entry_price Float64,
	target_price Float64,
	stop_price Float64,
	execution_price Nullable(Float64),
	execution_time Nullable(DateTime64(3, 'UTC')),
	holding_seconds Int64,
	return_pct Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, signal_created_at, signal_id, mode)`, database),
	}
}
