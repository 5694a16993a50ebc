package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
)

// GSI names on the audit table.
const (
	correlationIndex = "correlation_id-index"
	entityIndex      = "entity-index"
)

// Sink appends audit entries to DynamoDB. Append is the only write path;
// the conditional put keeps entries immutable once accepted.
type Sink struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewSink returns a configured Sink.
func NewSink(client aws.DynamoDBAPI, tableName string) *Sink {
	return &Sink{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Append persists one entry. Missing id/timestamp/retention fields are filled
// with defaults before the write. The put is conditional on the entry id not
// existing, so an accepted entry can never be overwritten.
func (s *Sink) Append(ctx context.Context, entry *Entry) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.nowFunc()
	}
	if entry.RetentionPolicy == "" {
		entry.RetentionPolicy = RetentionStandard
	}
	switch entry.RetentionPolicy {
	case RetentionStandard:
		entry.ExpiresAt = entry.Timestamp.Add(standardRetention).Unix()
	case RetentionExtended:
		entry.ExpiresAt = entry.Timestamp.Add(extendedRetention).Unix()
	case RetentionPermanent:
		entry.ExpiresAt = 0
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(entry_id)"),
	})
	if err != nil {
		return fmt.Errorf("put audit entry: %w", err)
	}
	return nil
}

// QueryByCorrelationID returns all entries recorded under one correlation id.
func (s *Sink) QueryByCorrelationID(ctx context.Context, correlationID string) ([]Entry, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(correlationIndex),
		KeyConditionExpression: awsString("correlation_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: correlationID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query correlation index: %w", err)
	}
	return unmarshalEntries(out.Items)
}

// QueryByEntity returns all entries recorded against one entity.
func (s *Sink) QueryByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(entityIndex),
		KeyConditionExpression: awsString("entity_id = :eid"),
		FilterExpression:       awsString("entity_type = :etype"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":eid":   &types.AttributeValueMemberS{Value: entityID},
			":etype": &types.AttributeValueMemberS{Value: entityType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query entity index: %w", err)
	}
	return unmarshalEntries(out.Items)
}

func unmarshalEntries(items []map[string]types.AttributeValue) ([]Entry, error) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := attributevalue.UnmarshalMap(item, &e); err != nil {
			return nil, fmt.Errorf("unmarshal audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Helper
func awsString(s string) *string { return &s }
