package repository

import (
	"context"
	"time"

	"BitDCA/internal/domain/models"
)

// MarketFeed supplies the spot price and the daily history for a lookback window.
// Implementations return *models.IngestionError for transport and payload failures.
type MarketFeed interface {
	SpotPrice(ctx context.Context) (float64, error)
	History(ctx context.Context, days int) ([]models.PricePoint, error)
}

// SnapshotCache stores the last ingested market snapshot.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (models.MarketSnapshot, bool, error)
	Set(ctx context.Context, key string, snap models.MarketSnapshot, ttl time.Duration) error
}

// SnapshotPublisher emits one RiskSnapshot per ingestion cycle.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap models.RiskSnapshot) error
	Close() error
}

// PriceArchive persists fetched daily prices and scored snapshots.
type PriceArchive interface {
	SavePrices(ctx context.Context, symbol string, points []models.PricePoint) error
	SaveSnapshots(ctx context.Context, snaps []models.RiskSnapshot) error
	Prices(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PricePoint, error)
}

// SubscriberStore is the append-only newsletter list.
type SubscriberStore interface {
	// Add appends email unless it is already present; added reports which.
	Add(ctx context.Context, email string) (added bool, err error)
	List(ctx context.Context) ([]string, error)
}

// BroadcastQueue hands newsletter broadcasts to background delivery.
type BroadcastQueue interface {
	Enqueue(ctx context.Context, b models.Broadcast) error
}

// Metrics records engine-level observations.
type Metrics interface {
	RecordIngestion(strategy, outcome string)
	RecordFetchLatency(op string, seconds float64)
	RecordSpotPrice(symbol string, price float64)
	RecordScore(strategy string, value float64, neutral bool)
	RecordRecommendation(strategy string)
	RecordError(kind string)
}
