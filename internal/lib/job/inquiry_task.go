package job

import (
	"encoding/json"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/hibiken/asynq"
)

const (
	// TaskInquiryNotify re-sends both emails for one pending record.
	TaskInquiryNotify = "inquiry:notify"

	// TaskOutboxSweep looks for pending records and enqueues notify tasks.
	TaskOutboxSweep = "inquiry:outbox_sweep"
)

// NewInquiryNotifyTask constructs the notify task for a record.
//
// The payload is the flat record JSON. The task id is the submission id, so
// a record that is already queued is not queued a second time.
//
//   - MaxRetry(5): retry up to 5 times on failure
//   - Queue("default"): send into the "default" queue
//   - Timeout(30s): kill the task if handler runs longer than 30 seconds
func NewInquiryNotifyTask(rec *model.Record) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskInquiryNotify,
		payload,
		asynq.TaskID(rec.SubmissionID),
		asynq.MaxRetry(5),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewOutboxSweepTask constructs the periodic sweep task. It is not retried:
// the next tick sweeps again anyway.
func NewOutboxSweepTask() *asynq.Task {
	return asynq.NewTask(
		TaskOutboxSweep,
		nil,
		asynq.MaxRetry(0),
		asynq.Queue("low"),
		asynq.Timeout(time.Minute),
	)
}
