package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	pkgkafka "FinSignal/pkg/kafka"
)

// BarProcessor is satisfied by middleware.BarPipeline.
type BarProcessor interface {
	Process(ctx context.Context, b models.Bar) error
}

// KafkaBarsHandler consumes closed bars and forwards them to the ingest pipeline.
type KafkaBarsHandler struct {
	topic   string
	proc    BarProcessor
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, proc BarProcessor, metrics domrepo.Metrics) *KafkaBarsHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &KafkaBarsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, tf, t, o, h, l, c, v}; t is the bar
// close time in unix seconds or milliseconds.
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		TF     string  `json:"tf"`
		T      int64   `json:"t"`
		O      float64 `json:"o"`
		H      float64 `json:"h"`
		L      float64 `json:"l"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	tf, err := models.ParseTimeframe(m.TF)
	if err != nil {
		h.metrics.RecordError("consumer_timeframe")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	ts := time.Unix(m.T, 0).UTC()
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	return h.proc.Process(ctx, models.Bar{
		Symbol:    m.Symbol,
		Timeframe: tf,
		Timestamp: ts,
		Open:      m.O,
		High:      m.H,
		Low:       m.L,
		Close:     m.C,
		Volume:    m.V,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
