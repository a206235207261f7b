// Package repository persists inquiry records.
//
// Two stores implement the same operations: DynamoDB (the default, one item
// per inquiry with a TTL attribute) and PostgreSQL (the inquiries table
// managed by the embedded migrations). The service layer only sees the
// InquiryStore interface.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/deppfellow/travelease-inquiry/internal/server"
)

var (
	// ErrDuplicateRecord means a record with the same submission id exists.
	ErrDuplicateRecord = errors.New("inquiry record already exists")

	// ErrRecordNotFound means no record has the given submission id.
	ErrRecordNotFound = errors.New("inquiry record not found")
)

// InquiryStore is the durable store for inquiry records.
type InquiryStore interface {
	PutRecord(ctx context.Context, rec *model.Record) error
	MarkNotified(ctx context.Context, submissionID string, at time.Time) error
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Record, error)
	Ping(ctx context.Context) error
}

// Repositories is a container for all repository instances.
type Repositories struct {
	Inquiries InquiryStore
}

// NewRepositories picks the inquiry store for the configured backend.
//
// Parameter:
//   - s: application container (AWS config on s.AWS, DB pool on s.DB, logger on s.Logger)
func NewRepositories(s *server.Server) (*Repositories, error) {
	switch s.Config.Storage.Backend {
	case config.StorageDynamoDB:
		client := dynamodb.NewFromConfig(s.AWS)
		return &Repositories{
			Inquiries: NewDynamoStore(client, s.Config.Storage.TableName, s.Logger),
		}, nil

	case config.StoragePostgres:
		if s.DB == nil {
			return nil, errors.New("postgres storage selected but no database connection")
		}
		return &Repositories{
			Inquiries: NewPostgresStore(s.DB.Pool, s.Logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Config.Storage.Backend)
	}
}
