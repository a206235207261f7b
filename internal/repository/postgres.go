package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// dbtx is what the postgres store needs from a pool. *pgxpool.Pool and
// pgxmock pools satisfy it.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresStore keeps inquiries in the inquiries table. The flat record
// JSON lives in payload; the other columns exist for indexing and expiry.
type PostgresStore struct {
	db     dbtx
	logger *zerolog.Logger
}

// NewPostgresStore creates a store on top of a pool.
func NewPostgresStore(db dbtx, logger *zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const insertInquiry = `
INSERT INTO inquiries (id, created_at, expires_at, status, notified_at, payload)
VALUES ($1, $2, $3, $4, $5, $6)`

// PutRecord inserts the record. A duplicate id is an error.
func (s *PostgresStore) PutRecord(ctx context.Context, rec *model.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal inquiry payload")
	}

	_, err = s.db.Exec(ctx, insertInquiry,
		rec.SubmissionID,
		rec.CreatedAt,
		time.Unix(rec.TTL, 0).UTC(),
		string(rec.NotificationStatus),
		rec.NotifiedAt,
		payload,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errors.Wrapf(ErrDuplicateRecord, "submission %s", rec.SubmissionID)
		}
		return errors.Wrap(err, "insert inquiry")
	}

	return nil
}

const markInquiryNotified = `
UPDATE inquiries
SET status = 'notified',
    notified_at = $2,
    payload = payload || jsonb_build_object('notificationStatus', 'notified', 'notifiedAt', $3::text)
WHERE id = $1`

// MarkNotified flips the record to notified, keeping payload in sync.
func (s *PostgresStore) MarkNotified(ctx context.Context, submissionID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, markInquiryNotified, submissionID, at.UTC(), model.FormatTimestamp(at))
	if err != nil {
		return errors.Wrap(err, "mark inquiry notified")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrRecordNotFound, "submission %s", submissionID)
	}
	return nil
}

const listPendingInquiries = `
SELECT payload
FROM inquiries
WHERE status = 'pending' AND created_at < $1
ORDER BY created_at
LIMIT $2`

// ListPending returns the oldest pending records created before the cutoff.
// A limit of zero or less means no limit.
func (s *PostgresStore) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Record, error) {
	// LIMIT NULL is no limit in postgres.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.db.Query(ctx, listPendingInquiries, createdBefore.UTC(), lim)
	if err != nil {
		return nil, errors.Wrap(err, "query pending inquiries")
	}

	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, errors.Wrap(err, "read pending inquiries")
	}

	records := make([]*model.Record, 0, len(payloads))
	for _, payload := range payloads {
		var rec model.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			s.logger.Error().Err(err).Msg("skipping undecodable inquiry payload")
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
