package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	domsvc "BitDCA/internal/domain/service"
	"BitDCA/internal/services/risk"
	"BitDCA/internal/services/signals"
	"BitDCA/pkg/cache"
	applogger "BitDCA/pkg/logger"
)

// IngestorConfig holds the knobs the ingestion cycle reads from config.
type IngestorConfig struct {
	Symbol    string
	MinPoints int
	SMAWindow int
	Reference time.Time
	CacheTTL  time.Duration
}

// Ingestor runs one ingestion cycle: fetch, extract signals, score.
type Ingestor struct {
	feed     domrepo.MarketFeed
	cache    domrepo.SnapshotCache
	pub      domrepo.SnapshotPublisher
	archive  domrepo.PriceArchive
	metrics  domrepo.Metrics
	registry *risk.Registry
	cfg      IngestorConfig
	l        *applogger.Logger
	now      func() time.Time
}

// IngestorOption configures optional collaborators.
type IngestorOption func(*Ingestor)

func WithSnapshotCache(c domrepo.SnapshotCache) IngestorOption {
	return func(i *Ingestor) { i.cache = c }
}

func WithPublisher(p domrepo.SnapshotPublisher) IngestorOption {
	return func(i *Ingestor) { i.pub = p }
}

func WithArchive(a domrepo.PriceArchive) IngestorOption {
	return func(i *Ingestor) { i.archive = a }
}

func WithMetrics(m domrepo.Metrics) IngestorOption {
	return func(i *Ingestor) { i.metrics = m }
}

func WithLogger(l *applogger.Logger) IngestorOption {
	return func(i *Ingestor) { i.l = l }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) { i.now = now }
}

func NewIngestor(feed domrepo.MarketFeed, registry *risk.Registry, cfg IngestorConfig, opts ...IngestorOption) *Ingestor {
	if cfg.Symbol == "" {
		cfg.Symbol = "BTC"
	}
	i := &Ingestor{
		feed:     feed,
		registry: registry,
		cfg:      cfg,
		metrics:  nopMetrics{},
		l:        applogger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Registry exposes the strategies the ingestor scores with.
func (i *Ingestor) Registry() *risk.Registry { return i.registry }

// Assess ingests market data and scores it with the named strategy (empty
// means the default). Any ingestion failure aborts the cycle.
func (i *Ingestor) Assess(ctx context.Context, strategy string) (models.Assessment, domsvc.RiskStrategy, error) {
	strat, err := i.registry.Get(strategy)
	if err != nil {
		return models.Assessment{}, nil, err
	}

	snap, err := i.Snapshot(ctx)
	if err != nil {
		i.metrics.RecordIngestion(strat.Name(), "error")
		return models.Assessment{}, nil, err
	}

	a, err := i.score(snap, strat)
	if err != nil {
		i.recordFailure(strat.Name(), err)
		return models.Assessment{}, nil, err
	}
	i.metrics.RecordIngestion(strat.Name(), "ok")
	i.metrics.RecordScore(strat.Name(), a.Score.Value, a.Score.Neutral)

	i.publish(ctx, a)
	return a, strat, nil
}

func (i *Ingestor) score(snap models.MarketSnapshot, strat domsvc.RiskStrategy) (models.Assessment, error) {
	series, err := models.NewPriceSeries(snap.History)
	if err != nil {
		return models.Assessment{}, err
	}
	req := i.registry.Requirements(i.cfg.SMAWindow)
	now := i.now().UTC()
	sig, err := signals.Extract(series, snap.Spot, now, signals.Config{
		MinPoints:        i.cfg.MinPoints,
		SMAWindow:        i.cfg.SMAWindow,
		PctChangeWindows: req.PctChangeWindows,
		Reference:        i.cfg.Reference,
	})
	if err != nil {
		return models.Assessment{}, err
	}
	sc, err := strat.Score(sig)
	if err != nil {
		return models.Assessment{}, fmt.Errorf("score %s: %w", strat.Name(), err)
	}
	return models.Assessment{Symbol: snap.Symbol, Signals: sig, Score: sc, AsOf: now}, nil
}

// Snapshot returns the cached market snapshot or fetches a fresh one.
func (i *Ingestor) Snapshot(ctx context.Context) (models.MarketSnapshot, error) {
	lookback := i.registry.Requirements(i.cfg.SMAWindow).LookbackDays
	key := cache.GenerateKeyWithParams(i.cfg.Symbol, lookback)

	if i.cache != nil {
		snap, ok, err := i.cache.Get(ctx, key)
		if err != nil {
			i.l.Warn("snapshot cache get", applogger.String("key", key), applogger.Error(err))
		} else if ok {
			return snap, nil
		}
	}

	snap, err := i.fetch(ctx, lookback)
	if err != nil {
		return models.MarketSnapshot{}, err
	}
	i.metrics.RecordSpotPrice(snap.Symbol, snap.Spot)
	i.metrics.RecordFetchLatency("ingest", snap.Latency.Seconds())

	if i.cache != nil && i.cfg.CacheTTL > 0 {
		if err := i.cache.Set(ctx, key, snap, i.cfg.CacheTTL); err != nil {
			i.l.Warn("snapshot cache set", applogger.String("key", key), applogger.Error(err))
		}
	}
	if i.archive != nil {
		if err := i.archive.SavePrices(ctx, snap.Symbol, snap.History); err != nil {
			i.l.Warn("archive prices", applogger.Error(err))
		}
	}
	return snap, nil
}

// fetch issues the spot and history requests concurrently; both must succeed.
func (i *Ingestor) fetch(ctx context.Context, lookback int) (models.MarketSnapshot, error) {
	start := i.now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg               sync.WaitGroup
		spot             float64
		history          []models.PricePoint
		spotErr, histErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		spot, spotErr = i.feed.SpotPrice(ctx)
		if spotErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		history, histErr = i.feed.History(ctx, lookback)
		if histErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	if err := firstIngestionError(spotErr, histErr); err != nil {
		return models.MarketSnapshot{}, err
	}
	return models.MarketSnapshot{
		Symbol:    i.cfg.Symbol,
		Spot:      spot,
		History:   history,
		FetchedAt: start.UTC(),
		Lookback:  lookback,
		Latency:   i.now().Sub(start),
	}, nil
}

// firstIngestionError prefers the root cause over a sibling's cancellation.
func firstIngestionError(errs ...error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if fallback == nil {
				fallback = err
			}
			continue
		}
		return asIngestion(err)
	}
	if fallback != nil {
		return asIngestion(fallback)
	}
	return nil
}

func asIngestion(err error) error {
	if models.IsIngestion(err) {
		return err
	}
	return models.NewIngestionError(models.IngestionTransport, "market data fetch failed", err)
}

func (i *Ingestor) recordFailure(strategy string, err error) {
	var ie *models.IngestionError
	if errors.As(err, &ie) {
		i.metrics.RecordError(string(ie.Kind))
	}
	i.metrics.RecordIngestion(strategy, "error")
}

// publish hands the cycle's snapshot to the configured sinks. Sink failures
// never fail the cycle.
func (i *Ingestor) publish(ctx context.Context, a models.Assessment) {
	if i.pub == nil {
		return
	}
	snap := models.RiskSnapshot{
		Symbol:       a.Symbol,
		Strategy:     a.Score.Strategy,
		Score:        a.Score.Value,
		Neutral:      a.Score.Neutral,
		SpotPrice:    a.Signals.SpotPrice,
		SMA:          a.Signals.SMA,
		MaxDeviation: a.Signals.MaxDeviation,
		Timestamp:    a.AsOf,
	}
	if err := i.pub.Publish(ctx, snap); err != nil {
		i.l.Warn("publish risk snapshot",
			applogger.String("strategy", snap.Strategy),
			applogger.Error(err),
		)
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordIngestion(string, string) {}
func (nopMetrics) RecordFetchLatency(string, float64) {}
func (nopMetrics) RecordSpotPrice(string, float64) {}
func (nopMetrics) RecordScore(string, float64, bool) {}
func (nopMetrics) RecordRecommendation(string) {}
func (nopMetrics) RecordError(string) {}
