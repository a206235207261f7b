package router

import (
	"github.com/deppfellow/travelease-inquiry/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerInquiryRoutes registers the form submission endpoint. /submit is
// the path the existing frontend posts to through API Gateway.
func registerInquiryRoutes(r *echo.Echo, h *handler.Handlers) {
	submit := h.Inquiry.Submit()

	r.POST("/inquiries", submit)
	r.POST("/submit", submit)
}
