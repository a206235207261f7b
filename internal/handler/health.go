package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/middleware"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes /status so load balancers and uptime monitors can
// check that the service is running and its dependencies are reachable.
type HealthHandler struct {
	Handler
	store Pinger
}

// NewHealthHandler constructs a HealthHandler. store is the inquiry store.
func NewHealthHandler(s *server.Server, store Pinger) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		store:   store,
	}
}

// CheckHealth returns the service status and the enabled dependency checks.
//
// It returns:
//   - 200 OK when the store is reachable
//   - 503 Service Unavailable when it is not
//
// Redis is reported but never makes the service unhealthy: it only powers
// the outbox, and inquiries are accepted without it.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	obs := h.server.Config.Observability
	checks := make(map[string]any)
	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	isHealthy := true

	if obs.HealthCheckEnabled("store") && h.store != nil {
		result, err := h.runCheck(c.Request().Context(), "store", h.store.Ping)
		checks["store"] = result
		if err != nil {
			isHealthy = false
			logger.Error().Err(err).Msg("store health check failed")
		}
	}

	if obs.HealthCheckEnabled("redis") && h.server.Redis != nil {
		result, err := h.runCheck(c.Request().Context(), "redis", func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
		checks["redis"] = result
		if err != nil {
			logger.Error().Err(err).Msg("redis health check failed")
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

// runCheck pings one dependency under the configured timeout. A failure
// is also recorded as a New Relic custom event.
func (h *HealthHandler) runCheck(ctx context.Context, name string, ping func(context.Context) error) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, h.server.Config.Observability.HealthChecks.Timeout)
	defer cancel()

	checkStart := time.Now()
	err := ping(ctx)
	elapsed := time.Since(checkStart)

	if err == nil {
		return map[string]any{
			"status":        "healthy",
			"response_time": elapsed.String(),
		}, nil
	}

	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", map[string]any{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
	}

	return map[string]any{
		"status":        "unhealthy",
		"response_time": elapsed.String(),
		"error":         err.Error(),
	}, err
}
