package orchestrator

import (
	"context"
	"time"

	"github.com/imrishuroy/go-payment-orchestrator/internal/audit"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
	"github.com/imrishuroy/go-payment-orchestrator/internal/retry"
)

// Ledger is the persistence contract the orchestrator requires. The DynamoDB
// store in internal/ledger implements it; tests use an in-memory fake.
type Ledger interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*ledger.PaymentIntent, error)
	FindByID(ctx context.Context, paymentID string) (*ledger.PaymentIntent, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*ledger.PaymentIntent, error)
	CreateIfAbsent(ctx context.Context, intent *ledger.PaymentIntent) (bool, error)
	UpdateStatus(ctx context.Context, paymentID string, expected, next ledger.Status, fields ledger.UpdateFields) (*ledger.PaymentIntent, error)
	IncrementRetryCount(ctx context.Context, paymentID string) error
}

// AuditSink receives one entry per mutating operation. Failures are logged,
// never propagated.
type AuditSink interface {
	Append(ctx context.Context, entry *audit.Entry) error
}

// Metrics counts transitions and operation errors. Best-effort.
type Metrics interface {
	RecordTransition(ctx context.Context, from, to string)
	RecordError(ctx context.Context, operation string)
}

// Config groups the orchestrator's tunables with documented defaults.
type Config struct {
	// WebhookSecret is the shared secret for callback signature verification.
	WebhookSecret string
	// PendingTTL is how long a fresh intent may stay PENDING (default 24h).
	PendingTTL time.Duration
	// Backoff drives reconciliation polling delays (default retry.DefaultPolicy).
	Backoff retry.Policy
	// MaxRetries bounds reconciliation polling when the caller passes 0 (default 5).
	MaxRetries int
}

const (
	defaultPendingTTL = 24 * time.Hour
	defaultMaxRetries = 5
)

// CreatePaymentInput describes one checkout request.
type CreatePaymentInput struct {
	AmountMinor   int64
	Currency      string
	CustomerID    string
	CorrelationID string
	ActorUserID   string
	Metadata      map[string]string
}

// CreatePaymentResult reports the committed intent. IsIdempotentReplay is a
// success signal: the same logical request already created this intent.
type CreatePaymentResult struct {
	Intent             *ledger.PaymentIntent
	IsIdempotentReplay bool
}

// VerifyPaymentInput carries a gateway callback.
type VerifyPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	CorrelationID    string
	ActorUserID      string
}

// VerifyPaymentResult reports the intent after signature verification and
// status mapping.
type VerifyPaymentResult struct {
	Intent   *ledger.PaymentIntent
	Verified bool
}

// ReconcileResult reports the outcome of a bounded reconciliation loop.
type ReconcileResult struct {
	Success     bool
	FinalStatus ledger.Status
	RetryCount  int
}

// RefundPaymentInput describes a full or partial refund request.
type RefundPaymentInput struct {
	PaymentID     string
	AmountMinor   int64
	Reason        string
	CorrelationID string
	ActorUserID   string
}

// RefundPaymentResult reports the refunded intent and refund metadata.
type RefundPaymentResult struct {
	Intent *ledger.PaymentIntent
	Refund *ledger.RefundInfo
}
