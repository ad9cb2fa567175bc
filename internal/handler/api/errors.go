package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"BitDCA/internal/domain/models"
	xhttp "BitDCA/pkg/http"
	applogger "BitDCA/pkg/logger"
)

// toAppError maps domain errors onto the HTTP error envelope.
func toAppError(err error) *xhttp.AppError {
	var (
		ie *models.IngestionError
		ve *models.InputValidationError
	)
	switch {
	case errors.As(err, &ie):
		return xhttp.BadGatewayError("ERR_INGESTION", ie.UserMessage()).
			WithParam("kind", string(ie.Kind)).
			WithError(err)
	case errors.As(err, &ve):
		return xhttp.ValidationFailed(ve.Field, ve.Error())
	case errors.Is(err, models.ErrSessionNotFound):
		return xhttp.NotFoundError("session not found or expired")
	case errors.Is(err, models.ErrUnknownStrategy):
		e := xhttp.BadRequestError(err.Error())
		e.Code = "ERR_UNKNOWN_STRATEGY"
		return e
	case errors.Is(err, models.ErrArchiveDisabled):
		return xhttp.ServiceUnavailableError("price archive is disabled")
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func fail(c echo.Context, l *applogger.Logger, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		l.Error(op+" failed", applogger.String("code", appErr.Code), applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
