package repository

import (
	"context"
	"fmt"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	"BitDCA/pkg/queue"
)

// BroadcastJobType is the queue message type for newsletter deliveries.
const BroadcastJobType = "newsletter.broadcast"

// QueuedBroadcasts hands broadcasts to the redis job queue.
type QueuedBroadcasts struct {
	pub queue.Publisher
}

func NewQueuedBroadcasts(pub queue.Publisher) *QueuedBroadcasts {
	return &QueuedBroadcasts{pub: pub}
}

func (q *QueuedBroadcasts) Enqueue(ctx context.Context, b models.Broadcast) error {
	if _, err := q.pub.Enqueue(ctx, BroadcastJobType, b); err != nil {
		return fmt.Errorf("enqueue broadcast: %w", err)
	}
	return nil
}

var _ domrepo.BroadcastQueue = (*QueuedBroadcasts)(nil)
