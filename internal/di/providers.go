package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"BitDCA/internal/domain/repository"
	"BitDCA/internal/handler/api"
	internalrepo "BitDCA/internal/repository"
	"BitDCA/internal/service/coingecko"
	"BitDCA/internal/service/ratelimit"
	"BitDCA/internal/services/risk"
	"BitDCA/internal/usecase"
	"BitDCA/pkg/cache"
	pkgch "BitDCA/pkg/clickhouse"
	"BitDCA/pkg/config"
	xhttp "BitDCA/pkg/http"
	pkgkafka "BitDCA/pkg/kafka"
	applogger "BitDCA/pkg/logger"
	"BitDCA/pkg/metrics"
	"BitDCA/pkg/queue"
	"BitDCA/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCache layers process memory over redis when redis is available.
func ProvideCache(cfg *config.Config, rdb *redis.Client) cache.Service {
	if rdb == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(64), cache.WithMemoryCleanup(time.Minute))
	}
	return cache.NewLayeredCache(
		cache.NewRedisCacheFromClient(rdb, cache.WithRedisPrefix(cfg.Redis.Prefix)),
		cache.WithLayeredMemorySize(64),
		cache.WithLayeredMemoryTTL(15*time.Second),
	)
}

func ProvideSnapshotCache(c cache.Service) repository.SnapshotCache {
	return internalrepo.NewCachedSnapshots(c)
}

// ProvideMarketFeed creates the rate-limited, breaker-guarded CoinGecko feed.
func ProvideMarketFeed(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.MarketFeed {
	mk := cfg.Market
	return coingecko.New(
		coingecko.WithBaseURL(mk.BaseURL),
		coingecko.WithAPIKey(mk.APIKey),
		coingecko.WithTimeout(mk.Timeout),
		coingecko.WithRateLimit(mk.Rate.RPS, mk.Rate.Burst),
		coingecko.WithBreaker(mk.Breaker.MaxRequests, mk.Breaker.Interval, mk.Breaker.Timeout, mk.Breaker.FailureThreshold),
		coingecko.WithMetrics(m),
		coingecko.WithLogger(l),
	)
}

func ProvideRegistry(cfg *config.Config) (*risk.Registry, error) {
	return risk.NewRegistryFromConfig(cfg)
}

// ProvideClickHouseClient connects and migrates the archive; nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvidePriceArchive(ch *pkgch.Client, l *applogger.Logger) repository.PriceArchive {
	if ch == nil {
		return internalrepo.NoopArchive{}
	}
	return internalrepo.NewCHPriceArchive(ch, l)
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer returns nil unless both kafka and its consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideSnapshotArchiver(cfg *config.Config, archive repository.PriceArchive) *usecase.SnapshotArchiver {
	return usecase.NewSnapshotArchiver(cfg.Kafka.Topic, archive)
}

func ProvideIngestor(
	cfg *config.Config,
	feed repository.MarketFeed,
	registry *risk.Registry,
	snapshots repository.SnapshotCache,
	pub repository.SnapshotPublisher,
	archive repository.PriceArchive,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Ingestor {
	return usecase.NewIngestor(feed, registry, usecase.IngestorConfig{
		Symbol:    cfg.Market.Symbol,
		MinPoints: cfg.Engine.MinPoints,
		SMAWindow: cfg.Engine.Deviation.Window,
		Reference: cfg.Engine.HalvingEpoch,
		CacheTTL:  cfg.Market.CacheTTL,
	},
		usecase.WithSnapshotCache(snapshots),
		usecase.WithPublisher(pub),
		usecase.WithArchive(archive),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

func ProvideSessionManager(cfg *config.Config, ing *usecase.Ingestor, m repository.Metrics) *usecase.SessionManager {
	return usecase.NewSessionManager(ing, cfg.Engine.SessionTTL, m)
}

// ProvideSubscriberStore picks the newsletter backend from config.
func ProvideSubscriberStore(cfg *config.Config, rdb *redis.Client) (repository.SubscriberStore, error) {
	switch cfg.Newsletter.Store {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("newsletter store: redis is disabled")
		}
		return internalrepo.NewRedisSubscribers(rdb), nil
	case "sqlite":
		return internalrepo.NewSQLiteSubscribers(cfg.Newsletter.SQLitePath)
	default:
		return internalrepo.NewMemorySubscribers(), nil
	}
}

// ProvideJobQueue returns nil unless the newsletter queue is enabled.
func ProvideJobQueue(cfg *config.Config, rdb *redis.Client, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Newsletter.Queue.Enabled || rdb == nil {
		return nil
	}
	return queue.NewRedisQueue(l, rdb, queue.Config{
		Workers:    cfg.Newsletter.Queue.Workers,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, queue.WithKeyPrefix("bitdca:queue:"+cfg.Newsletter.Queue.Name))
}

func ProvideBroadcastQueue(q *queue.RedisQueue) repository.BroadcastQueue {
	if q == nil {
		return nil
	}
	return internalrepo.NewQueuedBroadcasts(q)
}

func ProvideNewsletter(store repository.SubscriberStore, bq repository.BroadcastQueue, l *applogger.Logger) *usecase.Newsletter {
	return usecase.NewNewsletter(store, bq, l)
}

// ProvideHTTPServer assembles the API with rate limiting and metrics.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	ing *usecase.Ingestor,
	sessions *usecase.SessionManager,
	archive repository.PriceArchive,
	newsletter *usecase.Newsletter,
	rdb *redis.Client,
	ch *pkgch.Client,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, nil))
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		opts = append(opts, xhttp.WithMiddleware(ratelimit.New(rl.RPS, rl.Burst).Middleware()))
	}
	if rdb != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	if ch != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", ch.Health))
	}
	handlers := []xhttp.Handler{
		api.NewDCAHandler(l, ing, sessions, archive, cfg.Market.Symbol),
		api.NewNewsletterHandler(l, newsletter),
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	sessions *usecase.SessionManager,
	newsletter *usecase.Newsletter,
	consumer *pkgkafka.Consumer,
	archiver *usecase.SnapshotArchiver,
	jobs *queue.RedisQueue,
	rdb *redis.Client,
	c cache.Service,
	ch *pkgch.Client,
	pub repository.SnapshotPublisher,
	store repository.SubscriberStore,
) *server.App {
	opts := []server.Option{
		server.WithConsumer(consumer, archiver),
		server.WithQueue(jobs, usecase.NewBroadcastJob(newsletter)),
	}
	// closed in reverse: the shared redis client goes last
	if rdb != nil {
		opts = append(opts, server.WithCloser("redis", rdb))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	opts = append(opts,
		server.WithCloser("cache", c),
		server.WithCloser("publisher", pub),
	)
	if sc, ok := store.(io.Closer); ok {
		opts = append(opts, server.WithCloser("subscribers", sc))
	}
	return server.New(cfg, l, srv, sessions, opts...)
}
