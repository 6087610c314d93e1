package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishBatchEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "signals", []Message{
		{Key: []byte("BTC"), Value: map[string]int{"rank": 1}},
		{Key: []byte("ETH"), Value: "raw"},
		{Value: []byte("bytes")},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 3)
	assert.Equal(t, `{"rank":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))
	assert.Equal(t, "signals", w.msgs[0].Topic)
	assert.Equal(t, "BTC", string(w.msgs[0].Key))
}

func TestProducer_PublishPropagatesWriterError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("down")}, "gzip")
	assert.Error(t, p.PublishMessage(context.Background(), "logs", []byte("x")))
}

func TestProducer_EmptyBatchIsNoop(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")
	require.NoError(t, p.PublishBatch(context.Background(), "signals", nil))
	assert.Empty(t, w.msgs)
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, data, err := TraceHook().BeforeHandle(context.Background(), "bars", km, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
	assert.Equal(t, "payload", string(data))

	ctx, _, _ = TraceHook().BeforeHandle(context.Background(), "bars", kafka.Message{}, nil)
	assert.Empty(t, TraceIDFrom(ctx))
}

func TestBackoffWithJitter_Bounded(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10e6, 100e6, attempt)
		assert.Greater(t, int64(d), int64(0))
		assert.LessOrEqual(t, int64(d), int64(100e6))
	}
}
