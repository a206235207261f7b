package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/hibiken/asynq"
)

// handleInquiryNotifyTask re-sends the inquiry emails for one record.
//
// Steps:
//   - Parse the record from the task payload
//   - Send both emails (returning an error makes Asynq retry)
//   - Mark the record notified
func (j *JobService) handleInquiryNotifyTask(ctx context.Context, t *asynq.Task) error {
	var rec model.Record
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return fmt.Errorf("failed to unmarshal inquiry payload: %v: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("type", TaskInquiryNotify).
		Str("submission_id", rec.SubmissionID).
		Logger()

	log.Info().Msg("Processing inquiry notification task")

	err := j.notifier.NotifyInquiry(ctx, &rec)
	j.metrics.OutboxRedelivery(err)
	if err != nil {
		log.Error().Err(err).Msg("Failed to re-send inquiry emails")
		return err
	}

	// Retrying now would send the emails again, so a failed status update is
	// left for a later sweep.
	if err := j.store.MarkNotified(ctx, rec.SubmissionID, j.now()); err != nil {
		log.Error().Err(err).Msg("Emails re-sent but record could not be marked notified")
		return fmt.Errorf("mark notified: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().Msg("Successfully re-sent inquiry emails")
	return nil
}

// handleOutboxSweepTask enqueues a notify task for every record that has
// been pending for longer than the grace period. The grace period keeps
// the sweep away from requests that are still sending inline.
func (j *JobService) handleOutboxSweepTask(ctx context.Context, _ *asynq.Task) error {
	cutoff := j.now().Add(-j.outbox.GracePeriod)

	pending, err := j.store.ListPending(ctx, cutoff, j.outbox.BatchSize)
	if err != nil {
		return fmt.Errorf("list pending inquiries: %w", err)
	}

	if len(pending) == 0 {
		j.logger.Debug().Msg("Outbox sweep found nothing pending")
		return nil
	}

	var (
		enqueued int
		errs     []error
	)
	for _, rec := range pending {
		task, err := NewInquiryNotifyTask(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if _, err := j.enqueuer.EnqueueContext(ctx, task); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			j.logger.Error().
				Err(err).
				Str("submission_id", rec.SubmissionID).
				Msg("Failed to enqueue inquiry notification")
			errs = append(errs, err)
			continue
		}
		enqueued++
	}

	j.logger.Info().
		Int("pending", len(pending)).
		Int("enqueued", enqueued).
		Msg("Outbox sweep finished")

	return errors.Join(errs...)
}
