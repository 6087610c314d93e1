package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/domain/models"
	pkgkafka "FinSignal/pkg/kafka"
)

// passthrough lets array and pointer arguments reach the mock unchanged,
// as the ClickHouse driver accepts them natively.
type passthrough struct{}

func (passthrough) ConvertValue(v interface{}) (driver.Value, error) { return v, nil }

var t0 = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*CHBarStore, *CHSignalStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHBarStore(db, "finsignal"), NewCHSignalStore(db, "finsignal"), mock
}

func TestCHBarStore_GetBarsReportsGaps(t *testing.T) {
	bars, _, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"ts", "open", "high", "low", "close", "volume"}).
		AddRow(t0.Add(1*time.Hour), 100.0, 101.0, 99.0, 100.5, 10.0).
		AddRow(t0.Add(2*time.Hour), 100.5, 102.0, 100.0, 101.5, 12.0).
		AddRow(t0.Add(5*time.Hour), 101.5, 103.0, 101.0, 102.5, 9.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ts, open, high, low, close, volume FROM finsignal.bars FINAL")).
		WithArgs("BTC", "1h", t0, t0.Add(6*time.Hour)).
		WillReturnRows(rows)

	series, err := bars.GetBars(context.Background(), "BTC", models.TF1h, t0, t0.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
	require.Len(t, series.Gaps, 1)
	assert.Equal(t, 2, series.Gaps[0].Missing)
	assert.True(t, series.LowConfidence())
	assert.Equal(t, "BTC", series.Bars[0].Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBarStore_GetBarsQueryError(t *testing.T) {
	bars, _, mock := newMock(t)
	mock.ExpectQuery("SELECT ts").WillReturnError(errors.New("boom"))

	_, err := bars.GetBars(context.Background(), "BTC", models.TF1h, t0, t0.Add(time.Hour))
	assert.ErrorContains(t, err, "get bars")
}

func TestCHBarStore_StoreBars(t *testing.T) {
	bars, _, mock := newMock(t)
	in := []models.Bar{
		{Symbol: "BTC", Timeframe: models.TF15m, Timestamp: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 3},
		{Symbol: "BTC", Timeframe: models.TF15m, Timestamp: t0.Add(15 * time.Minute), Open: 1.5, High: 2, Low: 1, Close: 1.8, Volume: 4},
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO finsignal.bars (symbol, timeframe, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs("BTC", "15m", t0, 1.0, 2.0, 0.5, 1.5, 3.0, "BTC", "15m", t0.Add(15*time.Minute), 1.5, 2.0, 1.0, 1.8, 4.0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, bars.StoreBars(context.Background(), in))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func rankedSignal(t *testing.T) models.RankedSignal {
	t.Helper()
	c, err := models.NewSignalCandidate(models.CandidateParams{
		Symbol:         "ETH",
		Direction:      models.DirectionLong,
		TimeframeChain: []models.Timeframe{models.TF1d, models.TF4h, models.TF1h, models.TF15m},
		Entry:          100,
		Stop:           98,
		Target:         108,
		Confidence:     0.8,
		Regime:         models.RegimeBull,
		CreatedAt:      t0,
	})
	require.NoError(t, err)
	return models.RankedSignal{SignalCandidate: c, Rank: 1}
}

func TestCHSignalStore_SaveSignals(t *testing.T) {
	_, store, mock := newMock(t)
	sig := rankedSignal(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO finsignal.signals")).
		WithArgs(sig.ID, "ETH", "long", []string{"1d", "4h", "1h", "15m"}, 100.0, 98.0, 108.0,
			0.0, 0.0, 0.0, 0.0, 0.0, 0.8, sig.RiskReward, "BULL", uint8(0), uint16(1), t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSignals(context.Background(), []models.RankedSignal{sig}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalStore_SaveOutcomes(t *testing.T) {
	_, store, mock := newMock(t)
	price := 108.0
	at := t0.Add(3 * time.Hour)
	o := models.BacktestOutcome{
		SignalID: "id-1", Symbol: "ETH", Direction: models.DirectionLong, Mode: models.ModePattern,
		Status: models.StatusTargetHit, SignalCreatedAt: t0, EntryPrice: 100, TargetPrice: 108, StopPrice: 98,
		ExecutionPrice: &price, ExecutionTime: &at, HoldingDuration: 3 * time.Hour, ReturnPct: 8,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO finsignal.backtest_outcomes")).
		WithArgs("id-1", "ETH", "long", "pattern", "TARGET_HIT", t0, 100.0, 108.0, 98.0, &price, &at, int64(10800), 8.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveOutcomes(context.Background(), []models.BacktestOutcome{o}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalStore_EmptyIsNoop(t *testing.T) {
	_, store, mock := newMock(t)
	require.NoError(t, store.SaveSignals(context.Background(), nil))
	require.NoError(t, store.SaveOutcomes(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakePublisher struct {
	topic string
	msgs  []pkgkafka.Message
}

func (f *fakePublisher) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	f.topic = topic
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaSignalPublisher_KeysBySymbol(t *testing.T) {
	pub := &fakePublisher{}
	sig := rankedSignal(t)
	require.NoError(t, NewKafkaSignalPublisher(pub, "finsignal.signals").SaveSignals(context.Background(), []models.RankedSignal{sig}))

	assert.Equal(t, "finsignal.signals", pub.topic)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "ETH", string(pub.msgs[0].Key))
	assert.Equal(t, sig, pub.msgs[0].Value)
}

type fakeBatchResults struct {
	failAt int
	n      int
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r.n++
	if r.n == r.failAt {
		return pgconn.CommandTag{}, errors.New("constraint")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}
func (r *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("unused") }
func (r *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (r *fakeBatchResults) Close() error             { return nil }

type fakePG struct {
	batches []*pgx.Batch
	execs   []string
	results *fakeBatchResults
}

func (f *fakePG) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakePG) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	return f.results
}

func TestPGSignalStore_SaveSignalsQueuesOnePerSignal(t *testing.T) {
	pg := &fakePG{results: &fakeBatchResults{}}
	store := &PGSignalStore{conn: pg}
	a, b := rankedSignal(t), rankedSignal(t)
	b.Rank = 2

	require.NoError(t, store.SaveSignals(context.Background(), []models.RankedSignal{a, b}))
	require.Len(t, pg.batches, 1)
	assert.Equal(t, 2, pg.batches[0].Len())
	q := pg.batches[0].QueuedQueries[1]
	assert.Equal(t, insertSignalSQL, q.SQL)
	assert.Equal(t, b.ID, q.Arguments[0])
	assert.Equal(t, 2, q.Arguments[12])
}

func TestPGSignalStore_BatchErrorIsReturned(t *testing.T) {
	pg := &fakePG{results: &fakeBatchResults{failAt: 1}}
	store := &PGSignalStore{conn: pg}
	err := store.SaveOutcomes(context.Background(), []models.BacktestOutcome{{SignalID: "x", Mode: models.ModePattern}})
	assert.ErrorContains(t, err, "batch item 0")
}

func TestPGSignalStore_InitSchema(t *testing.T) {
	pg := &fakePG{}
	require.NoError(t, (&PGSignalStore{conn: pg}).InitSchema(context.Background()))
	assert.Equal(t, PGSchema, pg.execs)
}
