package validation

// CreatePaymentRequest is the payload for POST /payments
type CreatePaymentRequest struct {
	AmountMinor   int64             `json:"amount" validate:"required,gt=0"`        // minor units
	Currency      string            `json:"currency" validate:"required,len=3"`     // ISO 4217 code
	CustomerID    string            `json:"customer_id" validate:"required"`        // business id for customer
	CorrelationID string            `json:"correlation_id" validate:"required"`     // groups related operations
	ActorUserID   string            `json:"actor_user_id,omitempty"`                // optional actor for audit trail
	Metadata      map[string]string `json:"metadata,omitempty" validate:"max=20"`   // optional free-form metadata
}

// VerifyPaymentRequest is the payload for POST /payments/verify
// (the gateway webhook callback).
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}

// RefundPaymentRequest is the payload for POST /payments/:id/refund
type RefundPaymentRequest struct {
	AmountMinor   int64  `json:"amount" validate:"required,gt=0"` // may be less than the original (partial refund)
	Reason        string `json:"reason,omitempty" validate:"max=500"`
	CorrelationID string `json:"correlation_id" validate:"required"`
	ActorUserID   string `json:"actor_user_id,omitempty"`
}

// RetryPaymentRequest is the payload for POST /payments/:id/retry
type RetryPaymentRequest struct {
	MaxRetries    int    `json:"max_retries,omitempty" validate:"omitempty,min=1,max=10"` // 0 = server default
	CorrelationID string `json:"correlation_id,omitempty"`
}

// CancelPaymentRequest is the payload for POST /payments/:id/cancel
type CancelPaymentRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}
