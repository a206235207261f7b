package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/travelease-inquiry/internal/lib/metrics"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/deppfellow/travelease-inquiry/internal/server"
	"github.com/deppfellow/travelease-inquiry/internal/service"
	"github.com/labstack/echo/v4"
)

// InquirySubmitter is the part of the inquiry service the handler needs.
type InquirySubmitter interface {
	Submit(ctx context.Context, sub *model.Submission) (*model.Record, error)
}

// InquiryResponse is the body of a successful submission.
type InquiryResponse struct {
	Message string `json:"message"`
}

// InquiryHandler accepts travel-inquiry form submissions.
type InquiryHandler struct {
	Handler
	inquiries InquirySubmitter
}

// NewInquiryHandler creates the handler. Rejected payloads are counted as
// invalid inquiries.
func NewInquiryHandler(s *server.Server, inquiries InquirySubmitter) *InquiryHandler {
	base := NewHandler(s)
	base.rejected = func(error) {
		s.Metrics.Inquiry(metrics.OutcomeInvalid)
	}

	return &InquiryHandler{
		Handler:   base,
		inquiries: inquiries,
	}
}

// Submit is the route handler for POST /inquiries.
func (h *InquiryHandler) Submit() echo.HandlerFunc {
	return Handle(h.Handler, h.submit, http.StatusOK, newSubmission)
}

func (h *InquiryHandler) submit(c echo.Context, sub *model.Submission) (InquiryResponse, error) {
	if _, err := h.inquiries.Submit(c.Request().Context(), sub); err != nil {
		return InquiryResponse{}, err
	}
	return InquiryResponse{Message: service.MsgInquiryAccepted}, nil
}

func newSubmission() *model.Submission {
	return &model.Submission{}
}
