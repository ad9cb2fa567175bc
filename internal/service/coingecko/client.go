package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"BitDCA/internal/domain/models"
	drepo "BitDCA/internal/domain/repository"
	xhttp "BitDCA/pkg/http"
	applogger "BitDCA/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Option configures Client.
type Option func(*Client)

// Client implements MarketFeed against the CoinGecko public API.
type Client struct {
	baseURL string
	apiKey  string
	coin    string
	http    *xhttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics drepo.Metrics
	log     *applogger.Logger

	breakerSettings gobreaker.Settings
}

// New creates a CoinGecko feed for bitcoin priced in USD.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		coin:    "bitcoin",
		http:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     applogger.Nop(),
		breakerSettings: gobreaker.Settings{
			Name:        "coingecko",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		},
	}
	failures := uint32(3)
	for _, opt := range opts {
		opt(c)
	}
	if c.breakerSettings.ReadyToTrip == nil {
		c.breakerSettings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		}
	}
	// Only transport failures count against the breaker; a bad payload means
	// the upstream answered.
	c.breakerSettings.IsSuccessful = func(err error) bool {
		var ie *models.IngestionError
		return err == nil || (errors.As(err, &ie) && ie.Kind != models.IngestionTransport)
	}
	c.breakerSettings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn("circuit breaker state change",
			applogger.String("breaker", name),
			applogger.String("from", from.String()),
			applogger.String("to", to.String()),
		)
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.breakerSettings)
	return c
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the demo API key sent as x_cg_demo_api_key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = xhttp.NewClient(xhttp.WithTimeout(d))
		}
	}
}

// WithRateLimit paces outbound calls.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithBreaker configures the circuit breaker.
func WithBreaker(maxRequests uint32, interval, timeout time.Duration, failureThreshold uint32) Option {
	return func(c *Client) {
		c.breakerSettings.MaxRequests = maxRequests
		c.breakerSettings.Interval = interval
		c.breakerSettings.Timeout = timeout
		if failureThreshold > 0 {
			c.breakerSettings.ReadyToTrip = func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failureThreshold
			}
		}
	}
}

// WithMetrics records request latency.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

type coinResponse struct {
	MarketData *struct {
		CurrentPrice map[string]*float64 `json:"current_price"`
	} `json:"market_data"`
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// SpotPrice returns the current USD price.
func (c *Client) SpotPrice(ctx context.Context) (float64, error) {
	q := map[string][]string{
		"localization":   {"false"},
		"tickers":        {"false"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	c.withKey(q)

	var body []byte
	if err := c.get(ctx, "spot", "/coins/"+c.coin, q, &body); err != nil {
		return 0, err
	}

	var resp coinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, models.NewIngestionError(models.IngestionMalformedPayload, "decode spot payload", err)
	}
	if resp.MarketData == nil || resp.MarketData.CurrentPrice["usd"] == nil {
		return 0, models.NewIngestionError(models.IngestionMalformedPayload, "missing market_data.current_price.usd", nil)
	}
	price := *resp.MarketData.CurrentPrice["usd"]
	if !(price > 0) {
		return 0, models.NewIngestionError(models.IngestionMalformedPayload,
			fmt.Sprintf("spot price %v is not positive", price), nil)
	}
	return price, nil
}

// History returns daily prices for the last `days` days, oldest first.
func (c *Client) History(ctx context.Context, days int) ([]models.PricePoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("history: days must be positive, got %d", days)
	}
	q := map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
		"precision":   {"full"},
	}
	c.withKey(q)

	var body []byte
	if err := c.get(ctx, "history", "/coins/"+c.coin+"/market_chart", q, &body); err != nil {
		return nil, err
	}

	var resp marketChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, models.NewIngestionError(models.IngestionMalformedPayload, "decode market chart", err)
	}
	return decodePrices(resp.Prices)
}

func (c *Client) withKey(q map[string][]string) {
	if c.apiKey != "" {
		q["x_cg_demo_api_key"] = []string{c.apiKey}
	}
}

func decodePrices(raw [][]float64) ([]models.PricePoint, error) {
	if len(raw) == 0 {
		return nil, models.NewIngestionError(models.IngestionMalformedPayload, "prices array is missing or empty", nil)
	}
	points := make([]models.PricePoint, 0, len(raw))
	for i, tuple := range raw {
		if len(tuple) != 2 {
			return nil, models.NewIngestionError(models.IngestionMalformedPayload,
				fmt.Sprintf("price tuple %d has %d elements", i, len(tuple)), nil)
		}
		points = append(points, models.PricePoint{
			Time:  time.UnixMilli(int64(tuple[0])).UTC(),
			Price: tuple[1],
		})
	}
	if _, err := models.NewPriceSeries(points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, op, path string, q map[string][]string, dest *[]byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.NewIngestionError(models.IngestionTransport, op+": rate limiter", err)
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			Headers:     map[string]string{"Accept": "application/json"},
			QueryParams: q,
		}, dest)
		if err != nil {
			return nil, models.NewIngestionError(models.IngestionTransport, op+" request", err)
		}
		return nil, nil
	})
	if c.metrics != nil {
		c.metrics.RecordFetchLatency(op, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.NewIngestionError(models.IngestionTransport, op+": upstream circuit open", err)
		}
		c.log.Warn("coingecko request failed", applogger.String("op", op), applogger.Error(err))
		return err
	}
	return nil
}

var _ drepo.MarketFeed = (*Client)(nil)
