package handler

import (
	"github.com/deppfellow/travelease-inquiry/internal/repository"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/deppfellow/travelease-inquiry/internal/service"
)

// Handlers groups all HTTP handlers so router setup passes one value around.
type Handlers struct {
	Inquiry *InquiryHandler
	Health  *HealthHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Inquiry: NewInquiryHandler(s, services.Inquiry),
		Health:  NewHealthHandler(s, repos.Inquiries),
	}
}
