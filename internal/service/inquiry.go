package service

import (
	"context"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/errs"
	"github.com/deppfellow/travelease-inquiry/internal/lib/geocode"
	"github.com/deppfellow/travelease-inquiry/internal/lib/metrics"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// CodeDestinationNotFound is the error code for an unknown destination.
	CodeDestinationNotFound = "DESTINATION_NOT_FOUND"

	// MsgDestinationNotFound is shown when the geocoder knows no such place.
	MsgDestinationNotFound = "Could not find the specified destination. Please enter a valid destination."

	// MsgInquiryAccepted is returned on success.
	MsgInquiryAccepted = "Thank you for your inquiry! You will receive a confirmation email shortly with details of your request"
)

// RecordStore persists inquiry records.
type RecordStore interface {
	PutRecord(ctx context.Context, rec *model.Record) error
	MarkNotified(ctx context.Context, submissionID string, at time.Time) error
}

// DestinationVerifier checks that a destination exists.
type DestinationVerifier interface {
	Verify(ctx context.Context, destination string) geocode.Result
}

// Notifier sends the confirmation and business emails for a record.
type Notifier interface {
	NotifyInquiry(ctx context.Context, rec *model.Record) error
}

// InquiryService runs an accepted submission through verification,
// persistence and notification.
type InquiryService struct {
	store    RecordStore
	verifier DestinationVerifier
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewInquiryService creates the service. metrics may be nil.
func NewInquiryService(store RecordStore, verifier DestinationVerifier, notifier Notifier, m *metrics.Metrics, logger *zerolog.Logger) *InquiryService {
	return &InquiryService{
		store:    store,
		verifier: verifier,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Submit handles a submission that already passed validation.
//
// Order:
//  1. verify the destination; only an explicit "not found" stops here (400)
//  2. write the record as pending; a failed write stops here (500, no email)
//  3. send the confirmation, then the business email; a failure is a 500
//     but the record stays, pending, for the outbox to retry
//  4. mark the record notified; failing that only gets logged
func (s *InquiryService) Submit(ctx context.Context, sub *model.Submission) (*model.Record, error) {
	log := s.log(ctx)

	result := s.verifier.Verify(ctx, sub.Destination)
	s.metrics.DestinationCheck(result.String())
	if result == geocode.NotFound {
		s.metrics.Inquiry(metrics.OutcomeDestinationNotFound)
		return nil, errs.NewFieldError(CodeDestinationNotFound, MsgDestinationNotFound, "destination", "not-found")
	}

	rec := model.NewRecord(sub, s.newID(), s.now())

	txn := newrelic.FromContext(ctx)
	txn.AddAttribute("inquiry.submission_id", rec.SubmissionID)
	txn.AddAttribute("inquiry.destination_check", result.String())

	if err := s.store.PutRecord(ctx, rec); err != nil {
		s.metrics.Inquiry(metrics.OutcomeStoreFailed)
		return nil, errors.Wrap(err, "failed to store inquiry")
	}

	if err := s.notifier.NotifyInquiry(ctx, rec); err != nil {
		s.metrics.Inquiry(metrics.OutcomeNotifyFailed)
		log.Warn().
			Str("submission_id", rec.SubmissionID).
			Msg("inquiry stored but notification failed, left pending for the outbox")
		return nil, errors.Wrap(err, "failed to send inquiry emails")
	}

	notifiedAt := s.now()
	if err := s.store.MarkNotified(ctx, rec.SubmissionID, notifiedAt); err != nil {
		log.Error().
			Err(err).
			Str("submission_id", rec.SubmissionID).
			Msg("inquiry emails sent but record could not be marked notified")
	} else {
		rec.NotificationStatus = model.StatusNotified
		rec.NotifiedAt = &notifiedAt
	}

	s.metrics.Inquiry(metrics.OutcomeAccepted)
	log.Info().
		Str("submission_id", rec.SubmissionID).
		Str("destination_check", result.String()).
		Msg("inquiry accepted")

	return rec, nil
}

// log prefers the request-scoped logger carried by ctx.
func (s *InquiryService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.logger
}
