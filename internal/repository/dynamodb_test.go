package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/deppfellow/travelease-inquiry/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	put      *dynamodb.PutItemInput
	update   *dynamodb.UpdateItemInput
	scans    []*dynamodb.ScanInput
	pages    [][]map[string]types.AttributeValue
	err      error
	describe *dynamodb.DescribeTableInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put = in
	return &dynamodb.PutItemOutput{}, f.err
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.update = in
	return &dynamodb.UpdateItemOutput{}, f.err
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := len(f.scans)
	f.scans = append(f.scans, in)

	out := &dynamodb.ScanOutput{Items: f.pages[page]}
	if page < len(f.pages)-1 {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			model.KeySubmissionID: &types.AttributeValueMemberS{Value: "cursor"},
		}
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.describe = in
	return &dynamodb.DescribeTableOutput{}, f.err
}

func newDynamoStore(api DynamoDBAPI) *DynamoStore {
	logger := zerolog.Nop()
	return NewDynamoStore(api, "inquiries", &logger)
}

func TestDynamoPutRecord(t *testing.T) {
	api := &fakeDynamo{}
	rec := testRecord(t, "id-1")

	require.NoError(t, newDynamoStore(api).PutRecord(context.Background(), rec))

	assert.Equal(t, "inquiries", aws.ToString(api.put.TableName))
	assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(api.put.ConditionExpression))

	var item map[string]any
	require.NoError(t, attributevalue.UnmarshalMap(api.put.Item, &item))
	assert.Equal(t, "id-1", item["submissionId"])
	assert.Equal(t, "2025-05-01T10:00:00.000000Z", item["createdAt"])
	assert.EqualValues(t, rec.TTL, item["ttl"])
	assert.Equal(t, "pending", item["notificationStatus"])
	assert.EqualValues(t, 2, item["travelers"])
	assert.Equal(t, "X1", item["loyaltyId"])
	assert.Equal(t, map[string]any{"flights": true, "hotels": false}, item["services"])

	ttl, ok := api.put.Item["ttl"].(*types.AttributeValueMemberN)
	require.True(t, ok, "ttl must be a number attribute")
	assert.NotContains(t, ttl.Value, ".")
}

func TestDynamoPutRecordErrors(t *testing.T) {
	api := &fakeDynamo{err: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
	err := newDynamoStore(api).PutRecord(context.Background(), testRecord(t, "id-1"))
	assert.ErrorIs(t, err, ErrDuplicateRecord)

	api = &fakeDynamo{err: errors.New("throughput exceeded")}
	err = newDynamoStore(api).PutRecord(context.Background(), testRecord(t, "id-1"))
	assert.ErrorContains(t, err, "throughput exceeded")
	assert.NotErrorIs(t, err, ErrDuplicateRecord)
}

func TestDynamoMarkNotified(t *testing.T) {
	api := &fakeDynamo{}
	at := testNow.Add(time.Minute)

	require.NoError(t, newDynamoStore(api).MarkNotified(context.Background(), "id-1", at))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "id-1"}, api.update.Key["submissionId"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "notified"}, api.update.ExpressionAttributeValues[":notified"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2025-05-01T10:01:00.000000Z"}, api.update.ExpressionAttributeValues[":at"])

	api.err = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t, newDynamoStore(api).MarkNotified(context.Background(), "nope", at), ErrRecordNotFound)
}

func TestDynamoListPending(t *testing.T) {
	a, err := marshalItem(testRecord(t, "a"))
	require.NoError(t, err)
	b, err := marshalItem(testRecord(t, "b"))
	require.NoError(t, err)
	c, err := marshalItem(testRecord(t, "c"))
	require.NoError(t, err)
	broken := map[string]types.AttributeValue{
		"createdAt": &types.AttributeValueMemberS{Value: "yesterday"},
	}

	api := &fakeDynamo{pages: [][]map[string]types.AttributeValue{{a, broken}, {b, c}}}
	cutoff := testNow.Add(time.Hour)

	recs, err := newDynamoStore(api).ListPending(context.Background(), cutoff, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].SubmissionID)
	assert.Equal(t, "b", recs[1].SubmissionID)
	assert.Equal(t, "Paris", recs[1].Submission.Destination)
	assert.Equal(t, model.StatusPending, recs[1].NotificationStatus)

	require.Len(t, api.scans, 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "2025-05-01T11:00:00.000000Z"}, api.scans[0].ExpressionAttributeValues[":before"])
	assert.NotNil(t, api.scans[1].ExclusiveStartKey)
}

func TestDynamoPing(t *testing.T) {
	api := &fakeDynamo{}
	require.NoError(t, newDynamoStore(api).Ping(context.Background()))
	assert.Equal(t, "inquiries", aws.ToString(api.describe.TableName))
}
