package repository

import (
	"context"

	"FinSignal/internal/domain/models"
	domrepo "FinSignal/internal/domain/repository"
	pkgkafka "FinSignal/pkg/kafka"
)

// BatchPublisher is satisfied by pkg/kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaSignalPublisher broadcasts ranked signals keyed by symbol.
type KafkaSignalPublisher struct {
	producer BatchPublisher
	topic    string
}

func NewKafkaSignalPublisher(producer BatchPublisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) SaveSignals(ctx context.Context, signals []models.RankedSignal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{Key: []byte(s.Symbol), Value: s}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

var _ domrepo.SignalSink = (*KafkaSignalPublisher)(nil)
