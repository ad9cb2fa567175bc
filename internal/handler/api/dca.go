package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	"BitDCA/internal/usecase"
	xhttp "BitDCA/pkg/http"
	applogger "BitDCA/pkg/logger"
	"BitDCA/pkg/util"
)

const (
	wsReadLimit    = 1 << 10
	wsIdleTimeout  = 2 * time.Minute
	wsWriteTimeout = 5 * time.Second
)

// DCAHandler serves market assessments, recommendations and sessions.
type DCAHandler struct {
	l        *applogger.Logger
	sessions *usecase.SessionManager
	ing      *usecase.Ingestor
	archive  domrepo.PriceArchive
	symbol   string
	upgrader websocket.Upgrader
}

func NewDCAHandler(l *applogger.Logger, ing *usecase.Ingestor, sessions *usecase.SessionManager, archive domrepo.PriceArchive, symbol string) *DCAHandler {
	return &DCAHandler{
		l:        l,
		ing:      ing,
		sessions: sessions,
		archive:  archive,
		symbol:   symbol,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *DCAHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/market", h.Market)
	g.GET("/recommendation", h.Recommendation)
	g.GET("/strategies", h.Strategies)
	g.GET("/history", h.History)
	g.POST("/sessions", h.OpenSession)
	g.GET("/sessions/:id", h.GetSession)
	g.GET("/sessions/:id/recommendation", h.SessionRecommendation)
	e.GET("/ws/sessions/:id", h.SessionStream)
}

// RecommendationResponse pairs an assessment with an optional recommendation.
// Recommendation is null when the amount is empty or zero.
type RecommendationResponse struct {
	Assessment     models.Assessment      `json:"assessment"`
	Recommendation *models.Recommendation `json:"recommendation"`
}

func (h *DCAHandler) Market(c echo.Context) error {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, _, err := h.ing.Assess(c.Request().Context(), req.Strategy)
	if err != nil {
		return fail(c, h.l, "market", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *DCAHandler) Recommendation(c echo.Context) error {
	req := &models.RecommendationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, rec, err := h.sessions.Quote(c.Request().Context(), req.Strategy, req.Amount)
	if err != nil {
		return fail(c, h.l, "recommendation", err)
	}
	return xhttp.SuccessResponse(c, RecommendationResponse{Assessment: a, Recommendation: rec})
}

func (h *DCAHandler) Strategies(c echo.Context) error {
	infos := h.ing.Registry().Infos()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}

func (h *DCAHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now().UTC()
	from, to := util.DayRange(
		util.ParseTimeDefault(req.From, now.AddDate(-1, 0, 0)),
		util.ParseTimeDefault(req.To, now),
	)
	pts, err := h.archive.Prices(c.Request().Context(), h.symbol, from, to, req.Limit)
	if err != nil {
		return fail(c, h.l, "history", err)
	}
	return xhttp.ListResponse(c, pts, int64(len(pts)))
}

func (h *DCAHandler) OpenSession(c echo.Context) error {
	req := &models.OpenSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.sessions.Open(c.Request().Context(), req.Strategy)
	if err != nil {
		return fail(c, h.l, "open session", err)
	}
	return xhttp.CreatedResponse(c, s)
}

func (h *DCAHandler) GetSession(c echo.Context) error {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return fail(c, h.l, "get session", err)
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *DCAHandler) SessionRecommendation(c echo.Context) error {
	req := &models.SessionAmountRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.sessions.Recommend(req.ID, req.Amount)
	if err != nil {
		return fail(c, h.l, "session recommendation", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"session_id":     req.ID,
		"recommendation": rec,
	})
}

type amountFrame struct {
	Amount string `json:"amount"`
}

type recommendationFrame struct {
	Amount         string                 `json:"amount"`
	Recommendation *models.Recommendation `json:"recommendation"`
	Error          *xhttp.AppError        `json:"error,omitempty"`
}

// SessionStream answers every amount frame from the session's pinned score.
// No frame triggers a network fetch.
func (h *DCAHandler) SessionStream(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.sessions.Get(id); err != nil {
		return fail(c, h.l, "session stream", err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade", applogger.Error(err))
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var in amountFrame
		if err := conn.ReadJSON(&in); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.l.Debug("websocket read", applogger.String("session", id), applogger.Error(err))
			}
			return nil
		}

		out := recommendationFrame{Amount: in.Amount}
		rec, err := h.sessions.Recommend(id, in.Amount)
		if err != nil {
			out.Error = toAppError(err)
		}
		out.Recommendation = rec

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			h.l.Debug("websocket write", applogger.String("session", id), applogger.Error(err))
			return nil
		}
	}
}

var _ xhttp.Handler = (*DCAHandler)(nil)
