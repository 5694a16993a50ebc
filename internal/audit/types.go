package audit

import "time"

// OperationType is the machine-readable label of an audited operation.
type OperationType string

const (
	OpPaymentCreate    OperationType = "payment_create"
	OpPaymentVerify    OperationType = "payment_verify"
	OpPaymentReconcile OperationType = "payment_reconcile"
	OpPaymentRefund    OperationType = "payment_refund"
	OpPaymentCancel    OperationType = "payment_cancel"
)

// EntryStatus is the outcome recorded on an entry.
type EntryStatus string

const (
	StatusSuccess EntryStatus = "success"
	StatusFailure EntryStatus = "failure"
	StatusError   EntryStatus = "error"
	StatusPending EntryStatus = "pending"
)

// RetentionPolicy drives the entry's TTL.
type RetentionPolicy string

const (
	RetentionStandard  RetentionPolicy = "standard"  // 90 days
	RetentionExtended  RetentionPolicy = "extended"  // 365 days
	RetentionPermanent RetentionPolicy = "permanent" // never expires
)

const (
	standardRetention = 90 * 24 * time.Hour
	extendedRetention = 365 * 24 * time.Hour
)

// Entry is one immutable audit record: who did what to which entity, with
// before/after snapshots. Entries are never updated or deleted by the
// application; only the TTL sweep purges expired ones.
type Entry struct {
	EntryID         string          `dynamodbav:"entry_id"` // PK
	EntityType      string          `dynamodbav:"entity_type"`
	EntityID        string          `dynamodbav:"entity_id"`
	Operation       string          `dynamodbav:"operation"` // human label
	OperationType   OperationType   `dynamodbav:"operation_type"`
	Status          EntryStatus     `dynamodbav:"status"`
	ActorUserID     string          `dynamodbav:"actor_user_id,omitempty"`
	CorrelationID   string          `dynamodbav:"correlation_id"`
	BeforeState     map[string]any  `dynamodbav:"before_state,omitempty"`
	AfterState      map[string]any  `dynamodbav:"after_state,omitempty"`
	ErrorMessage    string          `dynamodbav:"error_message,omitempty"`
	ErrorCode       string          `dynamodbav:"error_code,omitempty"`
	Timestamp       time.Time       `dynamodbav:"timestamp"`
	RetentionPolicy RetentionPolicy `dynamodbav:"retention_policy"`
	ExpiresAt       int64           `dynamodbav:"expires_at,omitempty"` // TTL epoch seconds, 0 = permanent
}
