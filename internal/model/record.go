package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationStatus tracks whether both inquiry emails went out.
type NotificationStatus string

const (
	StatusPending  NotificationStatus = "pending"
	StatusNotified NotificationStatus = "notified"
)

// RecordTTL is how long a record is kept before the store expires it.
const RecordTTL = 90 * 24 * time.Hour

// CreatedAtLayout is fixed width so timestamps sort and compare as strings.
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z"

// Keys the service owns. They always win over same-named submitted keys.
const (
	KeySubmissionID       = "submissionId"
	KeyCreatedAt          = "createdAt"
	KeyTTL                = "ttl"
	KeyNotificationStatus = "notificationStatus"
	KeyNotifiedAt         = "notifiedAt"
)

// Record is the persisted form of an accepted submission.
type Record struct {
	SubmissionID       string
	CreatedAt          time.Time
	TTL                int64
	NotificationStatus NotificationStatus
	NotifiedAt         *time.Time
	Submission         *Submission
}

// NewRecord stamps a submission with its id, creation time and expiry.
func NewRecord(sub *Submission, id string, now time.Time) *Record {
	createdAt := now.UTC()
	return &Record{
		SubmissionID:       id,
		CreatedAt:          createdAt,
		TTL:                createdAt.Add(RecordTTL).Unix(),
		NotificationStatus: StatusPending,
		Submission:         sub,
	}
}

// FormatTimestamp renders t the way createdAt and notifiedAt are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

// MarshalJSON flattens the record: submitted fields and system keys side by side.
func (r Record) MarshalJSON() ([]byte, error) {
	out := map[string]any{}

	if r.Submission != nil {
		values, err := r.Submission.values()
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			out[k] = v
		}
	}

	out[KeySubmissionID] = r.SubmissionID
	out[KeyCreatedAt] = FormatTimestamp(r.CreatedAt)
	out[KeyTTL] = r.TTL
	out[KeyNotificationStatus] = r.NotificationStatus
	if r.NotifiedAt != nil {
		out[KeyNotifiedAt] = FormatTimestamp(*r.NotifiedAt)
	} else {
		delete(out, KeyNotifiedAt)
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads a flat record back, splitting system keys from the
// submitted fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	var out Record

	if v, ok := values[KeySubmissionID]; ok {
		if err := json.Unmarshal(v, &out.SubmissionID); err != nil {
			return fmt.Errorf("decode %s: %w", KeySubmissionID, err)
		}
	}
	if v, ok := values[KeyCreatedAt]; ok {
		t, err := parseTimestamp(v)
		if err != nil {
			return fmt.Errorf("decode %s: %w", KeyCreatedAt, err)
		}
		out.CreatedAt = t
	}
	if v, ok := values[KeyTTL]; ok {
		if err := json.Unmarshal(v, &out.TTL); err != nil {
			return fmt.Errorf("decode %s: %w", KeyTTL, err)
		}
	}
	if v, ok := values[KeyNotificationStatus]; ok {
		if err := json.Unmarshal(v, &out.NotificationStatus); err != nil {
			return fmt.Errorf("decode %s: %w", KeyNotificationStatus, err)
		}
	}
	if v, ok := values[KeyNotifiedAt]; ok && string(v) != "null" {
		t, err := parseTimestamp(v)
		if err != nil {
			return fmt.Errorf("decode %s: %w", KeyNotifiedAt, err)
		}
		out.NotifiedAt = &t
	}

	for _, k := range []string{KeySubmissionID, KeyCreatedAt, KeyTTL, KeyNotificationStatus, KeyNotifiedAt} {
		delete(values, k)
	}

	rest, err := json.Marshal(values)
	if err != nil {
		return err
	}
	sub := &Submission{}
	if err := sub.UnmarshalJSON(rest); err != nil {
		return fmt.Errorf("decode submission: %w", err)
	}
	out.Submission = sub

	*r = out
	return nil
}

func parseTimestamp(v json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(CreatedAtLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
