// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and maps the inquiry and system routes
// to their handlers. The same router serves the long-running HTTP
// server and the Lambda adapter.
package router

import (
	"github.com/deppfellow/travelease-inquiry/internal/handler"
	"github.com/deppfellow/travelease-inquiry/internal/middleware"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the echo instance with the middleware stack and routes.
//
// Order matters: the request id and the New Relic transaction must exist
// before the context enhancer builds the request logger, and the request
// logger must wrap Recover so panics are logged with the final status.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.Global.AllowAnyOrigin(),
		middlewares.Global.CORS(),
		middlewares.Global.Secure(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.BodyLimit(),
	)

	registerSystemRoutes(router, s, h)
	registerInquiryRoutes(router, h)

	return router
}
