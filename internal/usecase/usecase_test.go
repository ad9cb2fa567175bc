package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitDCA/internal/domain/models"
	"BitDCA/internal/repository"
	"BitDCA/internal/services/risk"
	"BitDCA/pkg/cache"
	"BitDCA/pkg/config"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeFeed struct {
	spot       float64
	history    []models.PricePoint
	spotErr    error
	histErr    error
	spotCalls  atomic.Int32
	histCalls  atomic.Int32
	lastWindow atomic.Int32
}

func (f *fakeFeed) SpotPrice(ctx context.Context) (float64, error) {
	f.spotCalls.Add(1)
	return f.spot, f.spotErr
}

func (f *fakeFeed) History(ctx context.Context, days int) ([]models.PricePoint, error) {
	f.histCalls.Add(1)
	f.lastWindow.Store(int32(days))
	return f.history, f.histErr
}

func rising(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	start := testNow.AddDate(0, 0, -n)
	for i := range out {
		out[i] = models.PricePoint{Time: start.AddDate(0, 0, i), Price: 100 + float64(i)}
	}
	return out
}

type capturePublisher struct {
	mu    sync.Mutex
	snaps []models.RiskSnapshot
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, s models.RiskSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, s)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func newIngestor(t *testing.T, feed *fakeFeed, opts ...IngestorOption) *Ingestor {
	t.Helper()
	cfg := config.Default()
	reg, err := risk.NewRegistryFromConfig(cfg)
	require.NoError(t, err)
	opts = append([]IngestorOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewIngestor(feed, reg, IngestorConfig{
		Symbol:    "BTC",
		MinPoints: cfg.Engine.MinPoints,
		SMAWindow: cfg.Engine.Deviation.Window,
		Reference: cfg.Engine.HalvingEpoch,
		CacheTTL:  time.Minute,
	}, opts...)
}

func TestAssessScoresEveryStrategy(t *testing.T) {
	feed := &fakeFeed{spot: 400, history: rising(220)}
	pub := &capturePublisher{}
	ing := newIngestor(t, feed, WithPublisher(pub))

	for _, name := range []string{"deviation", "tanh", "blend"} {
		a, strat, err := ing.Assess(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, name, strat.Name())
		assert.True(t, a.Score.Range.Contains(a.Score.Value) || a.Score.Neutral, name)
		assert.Equal(t, 200, a.Signals.SMAWindow)
		_, ok := a.Signals.PctChange(30)
		assert.True(t, ok)
		_, ok = a.Signals.PctChange(108)
		assert.True(t, ok)
	}
	assert.EqualValues(t, 200, feed.lastWindow.Load())
	assert.Len(t, pub.snaps, 3)
	assert.Equal(t, "blend", pub.snaps[2].Strategy)
}

func TestAssessDefaultsToDeviation(t *testing.T) {
	ing := newIngestor(t, &fakeFeed{spot: 400, history: rising(220)})
	a, _, err := ing.Assess(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "deviation", a.Score.Strategy)
	// spot far above a rising SMA saturates the deviation ratio
	assert.Equal(t, 1.0, a.Score.Value)
	assert.Equal(t, risk.LabelBuyLess, a.Score.Label)
}

func TestAssessUnknownStrategyDoesNotFetch(t *testing.T) {
	feed := &fakeFeed{spot: 400, history: rising(220)}
	ing := newIngestor(t, feed)
	_, _, err := ing.Assess(context.Background(), "moon")
	assert.ErrorIs(t, err, models.ErrUnknownStrategy)
	assert.Zero(t, feed.spotCalls.Load())
}

func TestAssessPartialFailure(t *testing.T) {
	cases := map[string]*fakeFeed{
		"spot":    {spotErr: errors.New("dial tcp: refused"), history: rising(220)},
		"history": {spot: 400, histErr: models.NewIngestionError(models.IngestionMalformedPayload, "no prices", nil)},
	}
	for name, feed := range cases {
		t.Run(name, func(t *testing.T) {
			pub := &capturePublisher{}
			ing := newIngestor(t, feed, WithPublisher(pub))
			_, _, err := ing.Assess(context.Background(), "deviation")
			require.Error(t, err)
			assert.True(t, models.IsIngestion(err))
			assert.Empty(t, pub.snaps)
		})
	}
}

func TestAssessInsufficientHistory(t *testing.T) {
	ing := newIngestor(t, &fakeFeed{spot: 400, history: rising(10)})
	_, _, err := ing.Assess(context.Background(), "deviation")
	var ie *models.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, models.IngestionInsufficientHistory, ie.Kind)
	assert.Equal(t, "Not enough data to compute SMA.", ie.UserMessage())
}

func TestAssessEmptyHistory(t *testing.T) {
	ing := newIngestor(t, &fakeFeed{spot: 400})
	_, _, err := ing.Assess(context.Background(), "tanh")
	var ie *models.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Failed to load historical price data for SMA.", ie.UserMessage())
}

func TestSnapshotCacheAvoidsRefetch(t *testing.T) {
	feed := &fakeFeed{spot: 400, history: rising(220)}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	ing := newIngestor(t, feed, WithSnapshotCache(repository.NewCachedSnapshots(mc)))

	for i := 0; i < 3; i++ {
		_, _, err := ing.Assess(context.Background(), "tanh")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, feed.spotCalls.Load())
	assert.EqualValues(t, 1, feed.histCalls.Load())
}

func TestPublishFailureDoesNotFailIngestion(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	ing := newIngestor(t, &fakeFeed{spot: 400, history: rising(220)}, WithPublisher(pub))
	_, _, err := ing.Assess(context.Background(), "deviation")
	assert.NoError(t, err)
}

func TestSessionRecomputeNeverRefetches(t *testing.T) {
	feed := &fakeFeed{spot: 60000, history: rising(220)}
	mgr := NewSessionManager(newIngestor(t, feed), time.Hour, nil)

	s, err := mgr.Open(context.Background(), "deviation")
	require.NoError(t, err)
	assert.Equal(t, "deviation", s.Strategy)

	for _, amt := range []string{"1", "10", "100", "100.5"} {
		_, err := mgr.Recommend(s.ID, amt)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, feed.spotCalls.Load())

	rec, err := mgr.Recommend(s.ID, "100")
	require.NoError(t, err)
	require.NotNil(t, rec)
	// score 1 under the linear mode maps to the minimum multiplier
	assert.InDelta(t, 0.5, rec.Multiplier, 1e-12)
	assert.Equal(t, "50.00", rec.USDDisplay)
	assert.Equal(t, "0.00083333", rec.BTCDisplay)
}

func TestSessionRecommendEdgeCases(t *testing.T) {
	mgr := NewSessionManager(newIngestor(t, &fakeFeed{spot: 400, history: rising(220)}), time.Hour, nil)
	s, err := mgr.Open(context.Background(), "")
	require.NoError(t, err)

	rec, err := mgr.Recommend(s.ID, "")
	assert.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = mgr.Recommend(s.ID, "0")
	assert.NoError(t, err)
	assert.Nil(t, rec)

	_, err = mgr.Recommend(s.ID, "abc")
	var ve *models.InputValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = mgr.Recommend("missing", "10")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestQuoteValidatesBeforeFetching(t *testing.T) {
	feed := &fakeFeed{spot: 400, history: rising(220)}
	mgr := NewSessionManager(newIngestor(t, feed), time.Hour, nil)
	_, _, err := mgr.Quote(context.Background(), "tanh", "-5")
	require.Error(t, err)
	assert.Zero(t, feed.spotCalls.Load())

	a, rec, err := mgr.Quote(context.Background(), "tanh", "100")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.InDelta(t, 100*(1+a.Score.Value), rec.USD, 1e-9)
}

type captureQueue struct{ got []models.Broadcast }

func (c *captureQueue) Enqueue(_ context.Context, b models.Broadcast) error {
	c.got = append(c.got, b)
	return nil
}

func TestNewsletter(t *testing.T) {
	ctx := context.Background()
	n := NewNewsletter(repository.NewMemorySubscribers(), nil, nil)

	added, err := n.Subscribe(ctx, " Alice@Example.com ")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = n.Subscribe(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, added)
	_, err = n.Subscribe(ctx, "bob@example.com")
	require.NoError(t, err)

	_, err = n.Subscribe(ctx, "not-an-email")
	var ve *models.InputValidationError
	assert.ErrorAs(t, err, &ve)

	csv, err := n.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Email\nalice@example.com\nbob@example.com", csv)

	b, err := n.Broadcast(ctx, "Weekly", "Stack sats")
	require.NoError(t, err)
	assert.Len(t, b.Recipients, 2)

	_, err = n.Broadcast(ctx, "", "x")
	assert.ErrorAs(t, err, &ve)
}

func TestNewsletterQueuesBroadcast(t *testing.T) {
	ctx := context.Background()
	q := &captureQueue{}
	n := NewNewsletter(repository.NewMemorySubscribers(), q, nil)
	_, _ = n.Subscribe(ctx, "a@b.io")

	b, err := n.Broadcast(ctx, "s", "m")
	require.NoError(t, err)
	require.Len(t, q.got, 1)
	assert.Equal(t, b.ID, q.got[0].ID)

	payload, _ := json.Marshal(b)
	assert.NoError(t, NewBroadcastJob(n).Handle(ctx, payload))
}

type captureArchive struct {
	repository.NoopArchive
	snaps []models.RiskSnapshot
}

func (c *captureArchive) SaveSnapshots(_ context.Context, s []models.RiskSnapshot) error {
	c.snaps = append(c.snaps, s...)
	return nil
}

func TestSnapshotArchiver(t *testing.T) {
	arch := &captureArchive{}
	h := NewSnapshotArchiver("dca.risk.snapshots", arch)
	assert.Equal(t, "dca.risk.snapshots", h.Topic())

	raw, _ := json.Marshal(models.RiskSnapshot{Symbol: "BTC", Strategy: "tanh", Score: 0.2, Timestamp: testNow})
	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), []byte("{garbage")))
	require.Len(t, arch.snaps, 1)
	assert.Equal(t, "tanh", arch.snaps[0].Strategy)
}
