package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	applogger "FinSignal/pkg/logger"
)

const insertChunk = 2000

// CHBarStore implements BarStore backed by the ClickHouse bars table.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(db *sql.DB, database string) *CHBarStore {
	return &CHBarStore{db: db, table: database + ".bars", l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// GetBars returns bars with from <= close time <= to, ascending. FINAL
// collapses re-ingested duplicates before the merge runs.
func (s *CHBarStore) GetBars(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) (models.BarSeries, error) {
	start := time.Now()
	q := fmt.Sprintf(`SELECT ts, open, high, low, close, volume FROM %s FINAL
WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
ORDER BY ts ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse get_bars query error",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return models.BarSeries{}, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	bars := make([]models.Bar, 0, 256)
	for rows.Next() {
		b := models.Bar{Symbol: symbol, Timeframe: tf}
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return models.BarSeries{}, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return models.BarSeries{}, fmt.Errorf("rows: %w", err)
	}

	series, err := models.NewBarSeries(symbol, tf, bars)
	if err != nil {
		return models.BarSeries{}, err
	}
	s.l.Debug("clickhouse get_bars ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(bars)),
		applogger.Int("gaps", len(series.Gaps)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// StoreBars inserts bars in multi-row chunks.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Bar) error {
	for start := 0; start < len(bars); start += insertChunk {
		end := min(start+insertChunk, len(bars))
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, string(b.Timeframe), b.Timestamp.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, ts, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	return nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ domrepo.BarStore = (*CHBarStore)(nil)
