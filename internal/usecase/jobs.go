package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	"BitDCA/internal/repository"
	"BitDCA/pkg/queue"
)

// BroadcastJob delivers queued newsletter broadcasts.
type BroadcastJob struct {
	n *Newsletter
}

func NewBroadcastJob(n *Newsletter) *BroadcastJob { return &BroadcastJob{n: n} }

func (j *BroadcastJob) Name() string { return "newsletter-broadcast" }
func (j *BroadcastJob) Type() string { return repository.BroadcastJobType }

func (j *BroadcastJob) Handle(ctx context.Context, payload json.RawMessage) error {
	b, err := queue.ParsePayload[models.Broadcast](payload)
	if err != nil {
		return err
	}
	return j.n.Deliver(ctx, *b)
}

// SnapshotArchiver consumes risk snapshots from kafka into the archive.
type SnapshotArchiver struct {
	topic   string
	archive domrepo.PriceArchive
}

func NewSnapshotArchiver(topic string, archive domrepo.PriceArchive) *SnapshotArchiver {
	return &SnapshotArchiver{topic: topic, archive: archive}
}

func (a *SnapshotArchiver) Topic() string { return a.topic }

func (a *SnapshotArchiver) Handle(ctx context.Context, data []byte) error {
	var snap models.RiskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// undecodable payloads are dropped rather than retried
		return nil
	}
	if snap.Symbol == "" || snap.Timestamp.IsZero() {
		return nil
	}
	if err := a.archive.SaveSnapshots(ctx, []models.RiskSnapshot{snap}); err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}
	return nil
}

var _ queue.Job = (*BroadcastJob)(nil)
