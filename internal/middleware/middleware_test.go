package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/errs"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(out *bytes.Buffer) *server.Server {
	logger := zerolog.New(out)
	return &server.Server{
		Config: config.DefaultConfig(),
		Logger: &logger,
	}
}

// newTestEcho mirrors the production middleware order closely enough for
// the behaviour under test.
func newTestEcho(s *server.Server) *echo.Echo {
	m := NewMiddlewares(s)

	e := echo.New()
	e.HTTPErrorHandler = m.Global.GlobalErrorHandler
	e.Use(
		m.Global.AllowAnyOrigin(),
		m.Global.CORS(),
		RequestID(),
		m.Tracing.NewRelicMiddleware(),
		m.Tracing.EnhanceTracing(),
		m.ContextEnhancer.EnhanceContext(),
		m.Global.RequestLogger(),
		m.Global.Recover(),
	)
	return e
}

func serve(e *echo.Echo, req *http.Request) (*httptest.ResponseRecorder, errs.HTTPError) {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body errs.HTTPError
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestGlobalErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "field error passes through",
			err:         errs.NewFieldError("VALIDATION_FAILED", "Please enter a valid email address", "email", "malformed"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_FAILED",
			wantMessage: "Please enter a valid email address",
		},
		{
			name:        "wrapped field error passes through",
			err:         fmt.Errorf("submit: %w", errs.NewBadRequestError("Invalid date format", true, nil, nil)),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "BAD_REQUEST",
			wantMessage: "Invalid date format",
		},
		{
			name:        "internal error is hidden",
			err:         errors.New("ses: message rejected, sandbox address"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "Internal Server Error",
		},
		{
			name:        "echo client error keeps its status",
			err:         echo.ErrStatusRequestEntityTooLarge,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    "REQUEST_ENTITY_TOO_LARGE",
			wantMessage: "Request Entity Too Large",
		},
		{
			name:        "echo server error is hidden",
			err:         echo.NewHTTPError(http.StatusBadGateway, "upstream said no"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_SERVER_ERROR",
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			e := newTestEcho(newTestServer(&logs))
			e.POST("/inquiries", func(echo.Context) error { return tt.err })

			rec, body := serve(e, httptest.NewRequest(http.MethodPost, "/inquiries", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Contains(t, logs.String(), `"status":`+fmt.Sprint(tt.wantStatus))
		})
	}
}

func TestGlobalErrorHandlerLogsInternalDetails(t *testing.T) {
	var logs bytes.Buffer
	e := newTestEcho(newTestServer(&logs))
	e.POST("/inquiries", func(echo.Context) error { return errors.New("dynamodb throttled") })

	rec, _ := serve(e, httptest.NewRequest(http.MethodPost, "/inquiries", nil))

	assert.NotContains(t, rec.Body.String(), "dynamodb")
	assert.Contains(t, logs.String(), "dynamodb throttled")
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	e := newTestEcho(newTestServer(&bytes.Buffer{}))

	rec, body := serve(e, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", body.Message)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestPanicBecomesGenericServerError(t *testing.T) {
	var logs bytes.Buffer
	e := newTestEcho(newTestServer(&logs))
	e.POST("/inquiries", func(echo.Context) error { panic("nil map") })

	rec, body := serve(e, httptest.NewRequest(http.MethodPost, "/inquiries", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, logs.String(), "nil map")
}

func TestAllowAnyOrigin(t *testing.T) {
	t.Run("wildcard sets header without Origin", func(t *testing.T) {
		e := newTestEcho(newTestServer(&bytes.Buffer{}))
		e.POST("/inquiries", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		rec, _ := serve(e, httptest.NewRequest(http.MethodPost, "/inquiries", nil))

		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("explicit origins leave it to CORS", func(t *testing.T) {
		s := newTestServer(&bytes.Buffer{})
		s.Config.Server.CORSAllowedOrigins = []string{"https://travelease.example"}
		e := newTestEcho(s)
		e.POST("/inquiries", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

		rec, _ := serve(e, httptest.NewRequest(http.MethodPost, "/inquiries", nil))
		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

		req := httptest.NewRequest(http.MethodPost, "/inquiries", nil)
		req.Header.Set(echo.HeaderOrigin, "https://travelease.example")
		rec, _ = serve(e, req)
		assert.Equal(t, "https://travelease.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEcho(newTestServer(&bytes.Buffer{}))
	e.POST("/inquiries", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/inquiries", nil)
	req.Header.Set(echo.HeaderOrigin, "https://travelease.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec, _ := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
}

func TestRequestID(t *testing.T) {
	e := newTestEcho(newTestServer(&bytes.Buffer{}))
	e.GET("/id", func(c echo.Context) error { return c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec, _ := serve(e, req)
	assert.Equal(t, "req-123", rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec, _ = serve(e, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
}

func TestContextLoggerReachesGoContext(t *testing.T) {
	var logs bytes.Buffer
	e := newTestEcho(newTestServer(&logs))
	e.POST("/inquiries", func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("from service")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/inquiries", nil)
	req.Header.Set(RequestIDHeader, "req-456")
	serve(e, req)

	var line map[string]any
	first, _, _ := bytes.Cut(logs.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(first, &line))
	assert.Equal(t, "from service", line["message"])
	assert.Equal(t, "req-456", line["request_id"])
	assert.Equal(t, "/inquiries", line["path"])
}

func TestGetLoggerFallsBackToNop(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, zerolog.Disabled, GetLogger(c).GetLevel())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(errs.NewBadRequestError("x", false, nil, nil)))
	assert.Equal(t, http.StatusNotFound, statusOf(echo.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("x")))
}
