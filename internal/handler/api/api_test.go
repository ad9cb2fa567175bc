package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitDCA/internal/domain/models"
	"BitDCA/internal/repository"
	"BitDCA/internal/services/risk"
	"BitDCA/internal/usecase"
	"BitDCA/pkg/config"
	xhttp "BitDCA/pkg/http"
	applogger "BitDCA/pkg/logger"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type stubFeed struct {
	spot    float64
	history []models.PricePoint
	err     error
	calls   atomic.Int32
}

func (f *stubFeed) SpotPrice(context.Context) (float64, error) {
	f.calls.Add(1)
	return f.spot, f.err
}

func (f *stubFeed) History(context.Context, int) ([]models.PricePoint, error) {
	return f.history, nil
}

func rising(n int) []models.PricePoint {
	out := make([]models.PricePoint, n)
	start := testNow.AddDate(0, 0, -n)
	for i := range out {
		out[i] = models.PricePoint{Time: start.AddDate(0, 0, i), Price: 100 + float64(i)}
	}
	return out
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, feed *stubFeed) *echo.Echo {
	t.Helper()
	cfg := config.Default()
	reg, err := risk.NewRegistryFromConfig(cfg)
	require.NoError(t, err)
	ing := usecase.NewIngestor(feed, reg, usecase.IngestorConfig{
		Symbol:    "BTC",
		MinPoints: cfg.Engine.MinPoints,
		SMAWindow: cfg.Engine.Deviation.Window,
		Reference: cfg.Engine.HalvingEpoch,
	}, usecase.WithClock(func() time.Time { return testNow }))
	sessions := usecase.NewSessionManager(ing, time.Hour, nil)
	news := usecase.NewNewsletter(repository.NewMemorySubscribers(), nil, nil)

	l := applogger.Nop()
	srv := xhttp.NewServer(l, []xhttp.Handler{
		NewDCAHandler(l, ing, sessions, repository.NoopArchive{}, "BTC"),
		NewNewsletterHandler(l, news),
	}, xhttp.WithCORS(false))
	return srv.Echo()
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func appErrors(t *testing.T, env envelope) []xhttp.AppError {
	t.Helper()
	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	return errs
}

func TestMarket(t *testing.T) {
	e := newTestServer(t, &stubFeed{spot: 400, history: rising(220)})

	rec, env := do(t, e, http.MethodGet, "/api/market?strategy=tanh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var a models.Assessment
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, "tanh", a.Score.Strategy)
	assert.Equal(t, 400.0, a.Signals.SpotPrice)
}

func TestMarketRejectsUnknownStrategy(t *testing.T) {
	feed := &stubFeed{spot: 400, history: rising(220)}
	e := newTestServer(t, feed)

	rec, env := do(t, e, http.MethodGet, "/api/market?strategy=moon", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, feed.calls.Load())
	errs := appErrors(t, env)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN_STRATEGY", errs[0].Code)
	assert.Contains(t, errs[0].Message, "known: deviation, tanh, blend")
}

func TestOpenSessionRejectsUnknownStrategy(t *testing.T) {
	feed := &stubFeed{spot: 400, history: rising(220)}
	e := newTestServer(t, feed)

	rec, env := do(t, e, http.MethodPost, "/api/sessions", `{"strategy":"moon"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, feed.calls.Load())
	errs := appErrors(t, env)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UNKNOWN_STRATEGY", errs[0].Code)
}

func TestMarketIngestionFailure(t *testing.T) {
	e := newTestServer(t, &stubFeed{err: errors.New("dial tcp: refused"), history: rising(220)})

	rec, env := do(t, e, http.MethodGet, "/api/market", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	errs := appErrors(t, env)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_INGESTION", errs[0].Code)
	assert.Equal(t, "Failed to fetch Bitcoin data. Please try again.", errs[0].Message)
}

func TestRecommendation(t *testing.T) {
	e := newTestServer(t, &stubFeed{spot: 60000, history: rising(220)})

	rec, env := do(t, e, http.MethodGet, "/api/recommendation?amount=100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out RecommendationResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotNil(t, out.Recommendation)
	assert.Equal(t, "50.00", out.Recommendation.USDDisplay)
	assert.Equal(t, "0.00083333", out.Recommendation.BTCDisplay)

	rec, env = do(t, e, http.MethodGet, "/api/recommendation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = RecommendationResponse{}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Nil(t, out.Recommendation)
}

func TestRecommendationInvalidAmount(t *testing.T) {
	feed := &stubFeed{spot: 60000, history: rising(220)}
	e := newTestServer(t, feed)

	rec, env := do(t, e, http.MethodGet, "/api/recommendation?amount=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := appErrors(t, env)
	assert.Equal(t, "ERR_VALIDATION", errs[0].Code)
	assert.Equal(t, "amount", errs[0].Field)
	assert.Zero(t, feed.calls.Load())
}

func TestSessionLifecycle(t *testing.T) {
	feed := &stubFeed{spot: 60000, history: rising(220)}
	e := newTestServer(t, feed)

	rec, env := do(t, e, http.MethodPost, "/api/sessions", `{"strategy":"deviation"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s struct {
		ID       string `json:"id"`
		Strategy string `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "deviation", s.Strategy)

	for _, amount := range []string{"100", "250", "0", ""} {
		rec, _ = do(t, e, http.MethodGet, "/api/sessions/"+s.ID+"/recommendation?amount="+amount, "")
		assert.Equal(t, http.StatusOK, rec.Code, amount)
	}
	assert.EqualValues(t, 1, feed.calls.Load())

	rec, _ = do(t, e, http.MethodGet, "/api/sessions/"+s.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionNotFound(t *testing.T) {
	e := newTestServer(t, &stubFeed{spot: 60000, history: rising(220)})

	rec, _ := do(t, e, http.MethodGet, "/api/sessions/7d444840-9dc0-11d1-b245-5ffdce74fad2/recommendation?amount=5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/sessions/not-a-uuid/recommendation", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStrategies(t *testing.T) {
	e := newTestServer(t, &stubFeed{})

	rec, env := do(t, e, http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.StrategyInfo `json:"rows"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 3, list.Total)
}

func TestHistoryWithoutArchive(t *testing.T) {
	e := newTestServer(t, &stubFeed{})
	rec, _ := do(t, e, http.MethodGet, "/api/history?from=2025-01-01&to=2025-02-01", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewsletterEndpoints(t *testing.T) {
	e := newTestServer(t, &stubFeed{})

	rec, _ := do(t, e, http.MethodPost, "/api/newsletter/subscribers", `{"email":"a@b.io"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/api/newsletter/subscribers", `{"email":"a@b.io"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/api/newsletter/subscribers", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/newsletter/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email\na@b.io", rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "newsletter_emails.csv")

	rec, env := do(t, e, http.MethodPost, "/api/newsletter/broadcast", `{"subject":"Weekly","message":"Buy more"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var b struct {
		Recipients int `json:"recipients"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, 1, b.Recipients)
}

func TestSessionStream(t *testing.T) {
	feed := &stubFeed{spot: 60000, history: rising(220)}
	e := newTestServer(t, feed)
	ts := httptest.NewServer(e)
	defer ts.Close()

	_, env := do(t, e, http.MethodPost, "/api/sessions", "")
	var s struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &s))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + s.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"amount": "100"}))
	var out recommendationFrame
	require.NoError(t, conn.ReadJSON(&out))
	require.NotNil(t, out.Recommendation)
	assert.Equal(t, "50.00", out.Recommendation.USDDisplay)

	require.NoError(t, conn.WriteJSON(map[string]string{"amount": "-1"}))
	out = recommendationFrame{}
	require.NoError(t, conn.ReadJSON(&out))
	require.NotNil(t, out.Error)
	assert.Equal(t, "ERR_VALIDATION", out.Error.Code)

	assert.EqualValues(t, 1, feed.calls.Load())
}

func TestSessionStreamUnknownSession(t *testing.T) {
	e := newTestServer(t, &stubFeed{})
	rec, _ := do(t, e, http.MethodGet, "/ws/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToAppError(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, toAppError(models.ErrArchiveDisabled).Status)
	assert.Equal(t, "ERR_UNKNOWN_STRATEGY", toAppError(models.ErrUnknownStrategy).Code)
	assert.Equal(t, http.StatusInternalServerError, toAppError(errors.New("x")).Status)
}
