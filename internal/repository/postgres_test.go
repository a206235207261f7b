package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	logger := zerolog.Nop()
	return NewPostgresStore(mock, &logger), mock
}

func TestPostgresPutRecord(t *testing.T) {
	store, mock := newPostgresStore(t)
	rec := testRecord(t, "0b8f7c0e-6a1f-4a5e-9d43-6f3c2b1a0e99")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inquiries")).
		WithArgs(rec.SubmissionID, rec.CreatedAt, time.Unix(rec.TTL, 0).UTC(), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.PutRecord(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutRecordDuplicate(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO inquiries")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := store.PutRecord(context.Background(), testRecord(t, "id-1"))
	assert.ErrorIs(t, err, ErrDuplicateRecord)
}

func TestPostgresMarkNotified(t *testing.T) {
	store, mock := newPostgresStore(t)
	at := testNow.Add(time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inquiries")).
		WithArgs("id-1", at, "2025-05-01T10:01:00.000000Z").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inquiries")).
		WithArgs("missing", at, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.MarkNotified(context.Background(), "id-1", at))
	assert.ErrorIs(t, store.MarkNotified(context.Background(), "missing", at), ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListPending(t *testing.T) {
	store, mock := newPostgresStore(t)

	payload, err := json.Marshal(testRecord(t, "id-1"))
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"payload"}).
		AddRow(payload).
		AddRow([]byte(`"not an object"`))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload")).
		WithArgs(testNow, pgxmock.AnyArg()).
		WillReturnRows(rows)

	recs, err := store.ListPending(context.Background(), testNow, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "id-1", recs[0].SubmissionID)
	assert.Equal(t, model.StatusPending, recs[0].NotificationStatus)
	assert.JSONEq(t, `"X1"`, string(recs[0].Submission.Extensions["loyaltyId"]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	logger := zerolog.Nop()
	store := NewPostgresStore(mock, &logger)
	mock.ExpectPing()

	require.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
