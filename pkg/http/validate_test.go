package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	ID    string `param:"id" validate:"required,uuid"`
	Limit int    `query:"limit" default:"400" validate:"gte=1,lte=5000"`
}

type noteRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=5"`
}

func newContext(method, target, body string) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func validationErrors(t *testing.T, v interface{}) []ValidationError {
	t.Helper()
	errs, ok := v.([]ValidationError)
	require.True(t, ok, "got %T", v)
	return errs
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	req := &pageRequest{}
	c := withID(newContext(http.MethodGet, "/", ""), "0b6f5b8e-8f43-4d7c-9a57-1f0f1c2b3d4e")

	assert.Nil(t, ReadAndValidateRequest(c, req))
	assert.Equal(t, 400, req.Limit)
	assert.Equal(t, "0b6f5b8e-8f43-4d7c-9a57-1f0f1c2b3d4e", req.ID)
}

func TestReadAndValidateRequestRejectsBadUUID(t *testing.T) {
	c := withID(newContext(http.MethodGet, "/", ""), "not-a-session")

	errs := validationErrors(t, ReadAndValidateRequest(c, &pageRequest{}))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_UUID", errs[0].Code)
	assert.Equal(t, "id", errs[0].Field)
	assert.Equal(t, "id must be a valid UUID", errs[0].Message)
	assert.Nil(t, errs[0].Params)
}

func TestReadAndValidateRequestRange(t *testing.T) {
	c := withID(newContext(http.MethodGet, "/?limit=9000", ""), "0b6f5b8e-8f43-4d7c-9a57-1f0f1c2b3d4e")

	errs := validationErrors(t, ReadAndValidateRequest(c, &pageRequest{}))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "limit must be less than or equal to 5000", errs[0].Message)
	assert.Equal(t, map[string]interface{}{"max": "5000"}, errs[0].Params)

	c = withID(newContext(http.MethodGet, "/?limit=-3", ""), "0b6f5b8e-8f43-4d7c-9a57-1f0f1c2b3d4e")
	errs = validationErrors(t, ReadAndValidateRequest(c, &pageRequest{}))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_GTE", errs[0].Code)
	assert.Equal(t, map[string]interface{}{"min": "1"}, errs[0].Params)
}

func TestReadAndValidateRequestBodyFields(t *testing.T) {
	c := newContext(http.MethodPost, "/", `{"email":"","subject":"quarterly"}`)

	errs := validationErrors(t, ReadAndValidateRequest(c, &noteRequest{}))
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Code: "ERR_REQUIRED", Field: "email", Message: "email is required"}, errs[0])
	assert.Equal(t, "ERR_MAX", errs[1].Code)
	assert.Equal(t, "subject must be at most 5 characters", errs[1].Message)

	c = newContext(http.MethodPost, "/", `{"email":"someone@","subject":"hi"}`)
	errs = validationErrors(t, ReadAndValidateRequest(c, &noteRequest{}))
	require.Len(t, errs, 1)
	assert.Equal(t, "email must be a valid email", errs[0].Message)
}

func TestReadAndValidateRequestMalformedBody(t *testing.T) {
	c := newContext(http.MethodPost, "/", `{"email":`)

	errs := validationErrors(t, ReadAndValidateRequest(c, &noteRequest{}))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
	assert.Empty(t, errs[0].Field)
	assert.NotEmpty(t, errs[0].Message)
}
