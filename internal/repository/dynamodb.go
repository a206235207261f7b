package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DynamoDBAPI is the part of the DynamoDB client the store uses.
// *dynamodb.Client satisfies it.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps one item per inquiry, keyed by submissionId. The ttl
// attribute is the table's TTL attribute, so DynamoDB expires old items.
type DynamoStore struct {
	api    DynamoDBAPI
	table  string
	logger *zerolog.Logger
}

// NewDynamoStore creates a store for the given table.
func NewDynamoStore(api DynamoDBAPI, table string, logger *zerolog.Logger) *DynamoStore {
	return &DynamoStore{api: api, table: table, logger: logger}
}

// PutRecord writes a new item. It refuses to overwrite an existing one.
func (s *DynamoStore) PutRecord(ctx context.Context, rec *model.Record) error {
	item, err := marshalItem(rec)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal inquiry item")
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": model.KeySubmissionID,
		},
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return pkgerrors.Wrapf(ErrDuplicateRecord, "submission %s", rec.SubmissionID)
		}
		return pkgerrors.Wrap(err, "put inquiry item")
	}

	return nil
}

// MarkNotified flips an existing item to notified.
func (s *DynamoStore) MarkNotified(ctx context.Context, submissionID string, at time.Time) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			model.KeySubmissionID: &types.AttributeValueMemberS{Value: submissionID},
		},
		UpdateExpression:    aws.String("SET #status = :notified, #notifiedAt = :at"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id":         model.KeySubmissionID,
			"#status":     model.KeyNotificationStatus,
			"#notifiedAt": model.KeyNotifiedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":notified": &types.AttributeValueMemberS{Value: string(model.StatusNotified)},
			":at":       &types.AttributeValueMemberS{Value: model.FormatTimestamp(at)},
		},
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return pkgerrors.Wrapf(ErrRecordNotFound, "submission %s", submissionID)
		}
		return pkgerrors.Wrap(err, "update inquiry item")
	}

	return nil
}

// ListPending scans for pending items created before the cutoff. createdAt
// is fixed width, so the string comparison is a time comparison. A limit
// of zero or less means no limit.
func (s *DynamoStore) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Record, error) {
	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:        aws.String(s.table),
		FilterExpression: aws.String("#status = :pending AND #createdAt < :before"),
		ExpressionAttributeNames: map[string]string{
			"#status":    model.KeyNotificationStatus,
			"#createdAt": model.KeyCreatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(model.StatusPending)},
			":before":  &types.AttributeValueMemberS{Value: model.FormatTimestamp(createdBefore)},
		},
	})

	var records []*model.Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan pending inquiries")
		}

		for _, item := range page.Items {
			rec, err := unmarshalItem(item)
			if err != nil {
				// One bad item must not block the rest of the outbox.
				s.logger.Error().Err(err).Msg("skipping undecodable inquiry item")
				continue
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}
	}

	return records, nil
}

// Ping checks that the table is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return err
}

// marshalItem goes through the record's flat JSON so the item holds exactly
// the submitted keys plus the system keys.
func marshalItem(rec *model.Record) (map[string]types.AttributeValue, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}

	return attributevalue.MarshalMap(flat)
}

func unmarshalItem(item map[string]types.AttributeValue) (*model.Record, error) {
	var flat map[string]any
	if err := attributevalue.UnmarshalMap(item, &flat); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return nil, err
	}

	var rec model.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
