package repository

import (
	"context"
	"fmt"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	"BitDCA/pkg/kafka"
)

// KafkaSnapshotPublisher emits risk snapshots keyed by symbol.
type KafkaSnapshotPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaSnapshotPublisher(p *kafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: p, topic: topic}
}

func (k *KafkaSnapshotPublisher) Publish(ctx context.Context, snap models.RiskSnapshot) error {
	if err := k.producer.Publish(ctx, k.topic, []byte(snap.Symbol), snap); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (k *KafkaSnapshotPublisher) Close() error { return k.producer.Close() }

var _ domrepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
