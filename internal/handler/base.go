package handler

import (
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/middleware"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/deppfellow/travelease-inquiry/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler is the base handler type that holds shared application dependencies.
//
// Concrete handlers (InquiryHandler, HealthHandler) embed it so they can
// reach config, logger and metrics through *server.Server.
type Handler struct {
	server *server.Server

	// rejected runs when a request fails binding or validation, before
	// the typed handler is called. May be nil.
	rejected func(err error)
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// HandlerFunc represents a typed endpoint function that receives a bound and
// validated request payload and returns a response or an error.
//
// Req is a POINTER type in practice (e.g. *model.Submission) because the
// body is decoded into it.
type HandlerFunc[Req validation.Validatable, Res any] func(c echo.Context, req Req) (Res, error)

// ResponseHandler defines how a successful handler result is written to the
// HTTP response, and which New Relic attributes go with it.
type ResponseHandler interface {
	// Handle writes the HTTP response for the given result.
	Handle(c echo.Context, result any) error

	// GetOperation returns an operation name used for structured logging.
	GetOperation() string

	// AddAttributes attaches New Relic attributes based on the result.
	AddAttributes(txn *newrelic.Transaction, result any)
}

// JSONResponseHandler writes JSON responses with a given status code.
type JSONResponseHandler struct {
	status int
}

func (h JSONResponseHandler) Handle(c echo.Context, result any) error {
	return c.JSON(h.status, result)
}

func (h JSONResponseHandler) GetOperation() string {
	return "handler"
}

func (h JSONResponseHandler) AddAttributes(txn *newrelic.Transaction, result any) {
	// http.status_code is already set by tracing middleware (EnhanceTracing).
}

// handleRequest is the shared execution pipeline for all typed handlers.
//
// It centralizes:
//   - request binding + validation
//   - structured logging with the request-scoped logger
//   - New Relic attributes and noticed errors
//   - timing (validation, handler, total)
//   - response writing
//
// Errors are returned untouched so the global error handler decides the
// response.
func handleRequest[Req validation.Validatable](
	c echo.Context,
	h Handler,
	req Req,
	handler func(c echo.Context, req Req) (any, error),
	responseHandler ResponseHandler,
) error {
	start := time.Now()
	method := c.Request().Method
	route := c.Path()

	// The transaction is set by nrecho; every method on it is nil-safe.
	txn := newrelic.FromContext(c.Request().Context())
	txn.AddAttribute("handler.name", route)
	responseHandler.AddAttributes(txn, nil)

	logger := middleware.GetLogger(c).With().
		Str("operation", responseHandler.GetOperation()).
		Str("method", method).
		Str("route", route).
		Logger()

	logger.Debug().Msg("handling request")

	// ---------------- Validation phase ---------------------------------------
	validationStart := time.Now()

	if err := validation.BindAndValidate(c, req); err != nil {
		validationDuration := time.Since(validationStart)

		logger.Warn().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		txn.NoticeError(nrpkgerrors.Wrap(err))
		txn.AddAttribute("validation.status", "failed")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())

		if h.rejected != nil {
			h.rejected(err)
		}

		return err
	}

	validationDuration := time.Since(validationStart)
	txn.AddAttribute("validation.status", "success")
	txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())

	logger.Debug().
		Dur("validation_duration", validationDuration).
		Msg("request validation successful")

	// ---------------- Handler execution phase --------------------------------
	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		totalDuration := time.Since(start)

		logger.Error().
			Err(err).
			Dur("handler_duration", handlerDuration).
			Dur("total_duration", totalDuration).
			Msg("handler execution failed")

		txn.NoticeError(nrpkgerrors.Wrap(err))
		txn.AddAttribute("handler.status", "error")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())

		return err
	}

	totalDuration := time.Since(start)

	txn.AddAttribute("handler.status", "success")
	txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
	txn.AddAttribute("total.duration_ms", totalDuration.Milliseconds())
	responseHandler.AddAttributes(txn, result)

	logger.Info().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", totalDuration).
		Msg("request completed successfully")

	return responseHandler.Handle(c, result)
}

// Handle wraps a typed handler with validation, error handling, logging and
// tracing. It returns an echo.HandlerFunc that can be registered directly.
//
// newReq is called once per request so concurrent requests never share a
// payload value:
//
//	e.POST("/x", handler.Handle(h, fn, http.StatusOK, func() *MyReq { return &MyReq{} }))
func Handle[Req validation.Validatable, Res any](
	h Handler,
	handler HandlerFunc[Req, Res],
	status int,
	newReq func() Req,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, h, newReq(), func(c echo.Context, req Req) (any, error) {
			return handler(c, req)
		}, JSONResponseHandler{status: status})
	}
}
