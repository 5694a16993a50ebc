package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
)

// GSI names on the intents table.
const (
	gatewayOrderIndex = "gateway_order_id-index"
	statusExpiryIndex = "status-expires-index"
)

// ErrStatusMismatch indicates an optimistic status update lost a race: the
// stored status no longer matched the expected one.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// ErrIllegalTransition indicates the requested edge is not part of the
// payment state machine. The store refuses it before touching DynamoDB.
var ErrIllegalTransition = errors.New("illegal status transition")

// Store persists payment intents in DynamoDB. Intents live in one table keyed
// by payment_id; idempotency keys live in a second table keyed by the key
// itself, so a conditional write can enforce at-most-one intent per key.
type Store struct {
	client       aws.DynamoDBAPI
	intentsTable string
	keysTable    string
	ttlWindow    time.Duration // pending-intent expiry window (default 24h)
	nowFunc      func() time.Time
}

// NewStore returns a configured Store.
// ttlWindow: how long an intent may sit in PENDING before it is considered
// expired (e.g., 24*time.Hour).
func NewStore(client aws.DynamoDBAPI, intentsTable, keysTable string, ttlWindow time.Duration) *Store {
	return &Store{
		client:       client,
		intentsTable: intentsTable,
		keysTable:    keysTable,
		ttlWindow:    ttlWindow,
		nowFunc:      time.Now,
	}
}

// CreateIfAbsent atomically persists a new intent and its idempotency key.
// Returns (true, nil) when this call won the create. Returns (false, nil)
// when the idempotency key already exists — the caller should look up the
// winning intent and treat the request as a replay.
func (s *Store) CreateIfAbsent(ctx context.Context, intent *PaymentIntent) (bool, error) {
	now := s.nowFunc()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now
	if intent.ExpiresAt == 0 {
		intent.ExpiresAt = now.Add(s.ttlWindow).Unix()
	}

	intentMap, err := attributevalue.MarshalMap(intent)
	if err != nil {
		return false, fmt.Errorf("marshal intent: %w", err)
	}

	rec := keyRecord{
		IdempotencyKey: intent.IdempotencyKey,
		PaymentID:      intent.PaymentID,
		CreatedAt:      now.Format(time.RFC3339),
		ExpiresAt:      intent.ExpiresAt,
	}
	keyMap, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal key record: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.keysTable,
					Item:                keyMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.intentsTable,
					Item:                intentMap,
					ConditionExpression: awsString("attribute_not_exists(payment_id)"),
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			// idempotency key already committed by a concurrent create
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "TransactionCanceledException" {
			return false, nil
		}
		return false, fmt.Errorf("transact write: %w", err)
	}
	return true, nil
}

// FindByIdempotencyKey resolves an idempotency key to its committed intent.
// Returns (nil, nil) when the key has never been committed.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*PaymentIntent, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.keysTable,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get key record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec keyRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal key record: %w", err)
	}
	return s.FindByID(ctx, rec.PaymentID)
}

// FindByID fetches an intent by payment_id. Returns (nil, nil) if not found.
func (s *Store) FindByID(ctx context.Context, paymentID string) (*PaymentIntent, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.intentsTable,
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var intent PaymentIntent
	if err := attributevalue.UnmarshalMap(out.Item, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	return &intent, nil
}

// FindByGatewayOrderID fetches an intent via the gateway order id GSI.
// Returns (nil, nil) if no intent carries the order id.
func (s *Store) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*PaymentIntent, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.intentsTable,
		IndexName:              awsString(gatewayOrderIndex),
		KeyConditionExpression: awsString("gateway_order_id = :oid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: gatewayOrderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query gateway order index: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var intent PaymentIntent
	if err := attributevalue.UnmarshalMap(out.Items[0], &intent); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	return &intent, nil
}

// UpdateFields carries the optional attributes written alongside a status
// transition. Zero values are left untouched in storage.
type UpdateFields struct {
	GatewayPaymentID string
	PaymentMethod    string
	FailureReason    string
	CompletedAt      *time.Time
	Refund           *RefundInfo
	IncrementRetry   bool
}

// UpdateStatus transitions an intent from expected -> next, optionally
// writing extra fields. The edge is validated against the state machine
// first; the expected status is then enforced with a conditional update so a
// lost race surfaces as ErrStatusMismatch instead of a silent overwrite.
// Returns the updated intent on success.
func (s *Store) UpdateStatus(ctx context.Context, paymentID string, expected, next Status, fields UpdateFields) (*PaymentIntent, error) {
	if !CanTransition(expected, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, expected, next)
	}

	now := s.nowFunc()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: string(next)},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		":expected": &types.AttributeValueMemberS{Value: string(expected)},
	}

	if fields.GatewayPaymentID != "" {
		updateExpr += ", gateway_payment_id = :gpid"
		values[":gpid"] = &types.AttributeValueMemberS{Value: fields.GatewayPaymentID}
	}
	if fields.PaymentMethod != "" {
		updateExpr += ", payment_method = :pm"
		values[":pm"] = &types.AttributeValueMemberS{Value: fields.PaymentMethod}
	}
	if fields.FailureReason != "" {
		updateExpr += ", failure_reason = :fr"
		values[":fr"] = &types.AttributeValueMemberS{Value: fields.FailureReason}
	}
	if fields.CompletedAt != nil {
		updateExpr += ", completed_at = :ca"
		values[":ca"] = &types.AttributeValueMemberS{Value: fields.CompletedAt.Format(time.RFC3339Nano)}
	}
	if fields.Refund != nil {
		refundVal, err := attributevalue.Marshal(fields.Refund)
		if err != nil {
			return nil, fmt.Errorf("marshal refund info: %w", err)
		}
		updateExpr += ", refund = :rf"
		values[":rf"] = refundVal
	}
	if fields.IncrementRetry {
		updateExpr += " ADD retry_count :inc"
		values[":inc"] = &types.AttributeValueMemberN{Value: "1"}
	}

	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.intentsTable,
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrStatusMismatch
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return nil, ErrStatusMismatch
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	var intent PaymentIntent
	if err := attributevalue.UnmarshalMap(out.Attributes, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal updated intent: %w", err)
	}
	return &intent, nil
}

// IncrementRetryCount increases the retry counter by 1 without touching the
// status (used by reconciliation attempts that observed no remote change).
func (s *Store) IncrementRetryCount(ctx context.Context, paymentID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.intentsTable,
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
		UpdateExpression: awsString("SET updated_at = :ua ADD retry_count :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
			":ua":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("increment retry count: %w", err)
	}
	return nil
}

// QueryExpired returns PENDING and PROCESSING intents whose expires_at is at
// or before the given time. Used by an external sweep; the store only exposes
// the read.
func (s *Store) QueryExpired(ctx context.Context, asOf time.Time) ([]PaymentIntent, error) {
	var expired []PaymentIntent
	for _, status := range []Status{StatusPending, StatusProcessing} {
		out, err := s.client.Query(ctx, &dyn.QueryInput{
			TableName:              &s.intentsTable,
			IndexName:              awsString(statusExpiryIndex),
			KeyConditionExpression: awsString("#s = :st AND expires_at <= :now"),
			ExpressionAttributeNames: map[string]string{
				"#s": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":st":  &types.AttributeValueMemberS{Value: string(status)},
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(asOf.Unix(), 10)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("query expired %s intents: %w", status, err)
		}
		for _, item := range out.Items {
			var intent PaymentIntent
			if err := attributevalue.UnmarshalMap(item, &intent); err != nil {
				return nil, fmt.Errorf("unmarshal expired intent: %w", err)
			}
			expired = append(expired, intent)
		}
	}
	return expired, nil
}

// Helper
func awsString(s string) *string { return &s }
