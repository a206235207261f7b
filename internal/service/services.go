package service

import (
	"github.com/deppfellow/travelease-inquiry/internal/lib/email"
	"github.com/deppfellow/travelease-inquiry/internal/lib/geocode"
	"github.com/deppfellow/travelease-inquiry/internal/lib/job"
	"github.com/deppfellow/travelease-inquiry/internal/repository"
	"github.com/deppfellow/travelease-inquiry/internal/server"
)

// Services is a container for all service instances.
type Services struct {
	Inquiry *InquiryService
	Job     *job.JobService
}

// Clients are the outbound collaborators the services need.
type Clients struct {
	Email   *email.Client
	Geocode *geocode.Client
}

// NewServices wires the services from the server container, the
// repositories and the outbound clients.
func NewServices(s *server.Server, repos *repository.Repositories, clients Clients) *Services {
	return &Services{
		Inquiry: NewInquiryService(repos.Inquiries, clients.Geocode, clients.Email, s.Metrics, s.Logger),
		Job:     s.Job,
	}
}
