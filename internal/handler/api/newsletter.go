package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"BitDCA/internal/domain/models"
	"BitDCA/internal/usecase"
	xhttp "BitDCA/pkg/http"
	applogger "BitDCA/pkg/logger"
)

type NewsletterHandler struct {
	l *applogger.Logger
	n *usecase.Newsletter
}

func NewNewsletterHandler(l *applogger.Logger, n *usecase.Newsletter) *NewsletterHandler {
	return &NewsletterHandler{l: l, n: n}
}

func (h *NewsletterHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/newsletter")
	g.POST("/subscribers", h.Subscribe)
	g.GET("/subscribers", h.List)
	g.GET("/export.csv", h.Export)
	g.POST("/broadcast", h.Broadcast)
}

func (h *NewsletterHandler) Subscribe(c echo.Context) error {
	req := &models.SubscribeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	added, err := h.n.Subscribe(c.Request().Context(), req.Email)
	if err != nil {
		return fail(c, h.l, "subscribe", err)
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{"email": req.Email, "added": added})
}

func (h *NewsletterHandler) List(c echo.Context) error {
	emails, err := h.n.List(c.Request().Context())
	if err != nil {
		return fail(c, h.l, "list subscribers", err)
	}
	return xhttp.ListResponse(c, emails, int64(len(emails)))
}

func (h *NewsletterHandler) Export(c echo.Context) error {
	csv, err := h.n.ExportCSV(c.Request().Context())
	if err != nil {
		return fail(c, h.l, "export subscribers", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="newsletter_emails.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(csv))
}

func (h *NewsletterHandler) Broadcast(c echo.Context) error {
	req := &models.BroadcastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	b, err := h.n.Broadcast(c.Request().Context(), req.Subject, req.Message)
	if err != nil {
		return fail(c, h.l, "broadcast", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
		"id":         b.ID,
		"recipients": len(b.Recipients),
	})
}

var _ xhttp.Handler = (*NewsletterHandler)(nil)
