package repository

import (
	"context"
	"time"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
)

// NoopPublisher drops snapshots when kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.RiskSnapshot) error { return nil }
func (NoopPublisher) Close() error { return nil }

// NoopArchive discards writes and reports the archive as disabled on reads.
type NoopArchive struct{}

func (NoopArchive) SavePrices(context.Context, string, []models.PricePoint) error { return nil }
func (NoopArchive) SaveSnapshots(context.Context, []models.RiskSnapshot) error { return nil }

func (NoopArchive) Prices(context.Context, string, time.Time, time.Time, int) ([]models.PricePoint, error) {
	return nil, models.ErrArchiveDisabled
}

var (
	_ domrepo.SnapshotPublisher = NoopPublisher{}
	_ domrepo.PriceArchive      = NoopArchive{}
)
