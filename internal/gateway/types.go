package gateway

import "time"

// Remote payment statuses as reported by the gateway.
const (
	RemoteCreated    = "created"
	RemoteAuthorized = "authorized"
	RemoteCaptured   = "captured"
	RemoteFailed     = "failed"
	RemoteRefunded   = "refunded"
)

// CreateOrderRequest is the payload for creating a remote order.
type CreateOrderRequest struct {
	AmountMinor int64             `json:"amount"` // minor units
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Order is the remote order created against the gateway.
type Order struct {
	ID          string    `json:"id"`
	AmountMinor int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Receipt     string    `json:"receipt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payment is the authoritative remote payment state.
type Payment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Method      string `json:"method,omitempty"`
	Captured    bool   `json:"captured"`
	ErrorReason string `json:"error_reason,omitempty"`
}

// Refund is the remote refund record.
type Refund struct {
	ID          string    `json:"id"`
	PaymentID   string    `json:"payment_id"`
	AmountMinor int64     `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
