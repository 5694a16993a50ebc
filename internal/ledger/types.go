package ledger

import "time"

// Status is the local lifecycle state of a payment intent.
type Status string

// Payment intent statuses
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// allowedTransitions encodes the payment state machine:
//
//	PENDING    -> PROCESSING | COMPLETED | FAILED | CANCELLED
//	PROCESSING -> COMPLETED | FAILED | CANCELLED
//	FAILED     -> PROCESSING (bounded retry)
//	COMPLETED  -> REFUNDED
//
// CANCELLED and REFUNDED have no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  {StatusRefunded},
}

// CanTransition reports whether from -> to is a legal state machine edge.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsSettled reports whether a status is terminal for reconciliation purposes:
// no amount of polling the gateway will move it further.
func IsSettled(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled || s == StatusRefunded
}

// RefundInfo records the outcome of a gateway refund against an intent.
type RefundInfo struct {
	GatewayRefundID string    `dynamodbav:"gateway_refund_id" json:"gateway_refund_id"`
	AmountMinor     int64     `dynamodbav:"amount_minor" json:"amount_minor"`
	Reason          string    `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
	RefundedAt      time.Time `dynamodbav:"refunded_at" json:"refunded_at"`
}

// PaymentIntent represents one attempt to collect money. It is the item
// persisted in the payment intents DynamoDB table.
type PaymentIntent struct {
	PaymentID        string            `dynamodbav:"payment_id" json:"payment_id"` // PK
	CorrelationID    string            `dynamodbav:"correlation_id" json:"correlation_id"`
	IdempotencyKey   string            `dynamodbav:"idempotency_key" json:"idempotency_key"`
	CustomerID       string            `dynamodbav:"customer_id" json:"customer_id"`
	GatewayOrderID   string            `dynamodbav:"gateway_order_id" json:"gateway_order_id"` // GSI PK
	GatewayPaymentID string            `dynamodbav:"gateway_payment_id,omitempty" json:"gateway_payment_id,omitempty"`
	AmountMinor      int64             `dynamodbav:"amount_minor" json:"amount_minor"` // minor units, > 0
	Currency         string            `dynamodbav:"currency" json:"currency"`         // ISO 4217
	Status           Status            `dynamodbav:"status" json:"status"`
	PaymentMethod    string            `dynamodbav:"payment_method,omitempty" json:"payment_method,omitempty"`
	FailureReason    string            `dynamodbav:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	RetryCount       int               `dynamodbav:"retry_count,omitempty" json:"retry_count"`
	Metadata         map[string]string `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`
	Refund           *RefundInfo       `dynamodbav:"refund,omitempty" json:"refund,omitempty"`
	CreatedAt        time.Time         `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `dynamodbav:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time        `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
	ExpiresAt        int64             `dynamodbav:"expires_at" json:"expires_at"` // TTL epoch seconds
}

// keyRecord is the item persisted in the idempotency keys table. It maps an
// idempotency key to the payment it committed, and is written in the same
// transaction as the intent so two concurrent creates cannot both win.
type keyRecord struct {
	IdempotencyKey string `dynamodbav:"idempotency_key"` // PK
	PaymentID      string `dynamodbav:"payment_id"`
	CreatedAt      string `dynamodbav:"created_at"`
	ExpiresAt      int64  `dynamodbav:"expires_at"` // TTL epoch seconds
}
