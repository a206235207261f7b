package middleware

import (
	"net/http"
	"slices"

	"github.com/deppfellow/travelease-inquiry/internal/errs"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// MaxBodySize caps inquiry payloads. The form is a handful of short fields.
const MaxBodySize = "256K"

// GlobalMiddlewares groups the global middleware and the global error
// handler. It keeps *server.Server so each of them can read config.
type GlobalMiddlewares struct {
	server *server.Server
}

// NewGlobalMiddlewares constructs the middleware bundle.
func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS returns echo's CORS middleware configured from server config. It also
// answers the browser's OPTIONS preflight.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, RequestIDHeader},
	})
}

// AllowAnyOrigin sets Access-Control-Allow-Origin: * on every response when
// "*" is among the allowed origins.
//
// echo's CORS middleware only answers requests that send an Origin header.
// The form is also posted by non-browser clients, and error responses must
// carry the header too, so it is set before the rest of the chain runs.
func (global *GlobalMiddlewares) AllowAnyOrigin() echo.MiddlewareFunc {
	wildcard := slices.Contains(global.server.Config.Server.CORSAllowedOrigins, "*")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if wildcard {
				c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			}
			return next(c)
		}
	}
}

// BodyLimit rejects request bodies above MaxBodySize with a 413.
func (global *GlobalMiddlewares) BodyLimit() echo.MiddlewareFunc {
	return middleware.BodyLimit(MaxBodySize)
}

// RequestLogger logs one "API" line per request with the request-scoped
// logger. Severity follows the status: 5xx error, 4xx warn, else info.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			// When a handler returns an error the global error handler has not
			// written the final status yet, so derive it from the error.
			// https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			statusCode := v.Status
			if v.Error != nil {
				statusCode = statusOf(v.Error)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// statusOf returns the status the global error handler will answer err with.
func statusOf(err error) int {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) && echoErr.Code < http.StatusInternalServerError {
		return echoErr.Code
	}

	return http.StatusInternalServerError
}

// Recover turns panics into returned errors. They travel back up the chain
// (request logger, tracing) and reach GlobalErrorHandler, so a panicking
// request still gets the generic 500.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisablePrintStack:   true,
		DisableErrorHandler: true,
	})
}

// Secure returns echo's secure headers middleware.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel for the entire HTTP server.
//
// Client errors (*errs.HTTPError, echo's own 4xx) are answered as they are.
// Anything else is logged with its stack and answered with a generic 500 so
// internal details never reach the client.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):

	case errors.As(err, &echoErr) && echoErr.Code == http.StatusNotFound:
		httpErr = errs.NewNotFoundError("Route not found", false, nil)

	case errors.As(err, &echoErr) && echoErr.Code < http.StatusInternalServerError:
		message := http.StatusText(echoErr.Code)
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		}
		httpErr = &errs.HTTPError{
			Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
			Message: message,
			Status:  echoErr.Code,
		}

	default:
		httpErr = errs.NewInternalServerError()
	}

	logger := GetLogger(c)

	if httpErr.Status >= http.StatusInternalServerError {
		logger.Error().Stack().
			Err(originalErr).
			Int("status", httpErr.Status).
			Str("error_code", httpErr.Code).
			Msg("request failed")
	} else {
		logger.Warn().
			Err(originalErr).
			Int("status", httpErr.Status).
			Str("error_code", httpErr.Code).
			Str("field", httpErr.Field()).
			Msg(httpErr.Message)
	}

	if c.Response().Committed {
		return
	}

	if err := c.JSON(httpErr.Status, httpErr); err != nil {
		logger.Error().Err(err).Msg("failed to write error response")
	}
}
