package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/imrishuroy/go-payment-orchestrator/internal/audit"
	"github.com/imrishuroy/go-payment-orchestrator/internal/gateway"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
)

// --- fake ledger ---

type fakeLedger struct {
	mu      sync.Mutex
	intents map[string]*ledger.PaymentIntent // by payment id
	keys    map[string]string                // idempotency key -> payment id

	createCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		intents: map[string]*ledger.PaymentIntent{},
		keys:    map[string]string{},
	}
}

func copyIntent(in *ledger.PaymentIntent) *ledger.PaymentIntent {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func (f *fakeLedger) FindByIdempotencyKey(ctx context.Context, key string) (*ledger.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[key]
	if !ok {
		return nil, nil
	}
	return copyIntent(f.intents[id]), nil
}

func (f *fakeLedger) FindByID(ctx context.Context, paymentID string) (*ledger.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyIntent(f.intents[paymentID]), nil
}

func (f *fakeLedger) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*ledger.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, in := range f.intents {
		if in.GatewayOrderID == gatewayOrderID {
			return copyIntent(in), nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) CreateIfAbsent(ctx context.Context, intent *ledger.PaymentIntent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, exists := f.keys[intent.IdempotencyKey]; exists {
		return false, nil
	}
	f.keys[intent.IdempotencyKey] = intent.PaymentID
	f.intents[intent.PaymentID] = copyIntent(intent)
	return true, nil
}

func (f *fakeLedger) UpdateStatus(ctx context.Context, paymentID string, expected, next ledger.Status, fields ledger.UpdateFields) (*ledger.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !ledger.CanTransition(expected, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ledger.ErrIllegalTransition, expected, next)
	}
	intent, ok := f.intents[paymentID]
	if !ok {
		return nil, ledger.ErrStatusMismatch
	}
	if intent.Status != expected {
		return nil, ledger.ErrStatusMismatch
	}
	intent.Status = next
	if fields.GatewayPaymentID != "" {
		intent.GatewayPaymentID = fields.GatewayPaymentID
	}
	if fields.PaymentMethod != "" {
		intent.PaymentMethod = fields.PaymentMethod
	}
	if fields.FailureReason != "" {
		intent.FailureReason = fields.FailureReason
	}
	if fields.CompletedAt != nil {
		t := *fields.CompletedAt
		intent.CompletedAt = &t
	}
	if fields.Refund != nil {
		r := *fields.Refund
		intent.Refund = &r
	}
	if fields.IncrementRetry {
		intent.RetryCount++
	}
	return copyIntent(intent), nil
}

func (f *fakeLedger) IncrementRetryCount(ctx context.Context, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[paymentID]
	if !ok {
		return errors.New("intent not found")
	}
	intent.RetryCount++
	return nil
}

// --- fake audit sink ---

type fakeSink struct {
	mu      sync.Mutex
	entries []audit.Entry
	failAll bool
}

func (f *fakeSink) Append(ctx context.Context, entry *audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("audit store down")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeSink) byType(op audit.OperationType) []audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []audit.Entry
	for _, e := range f.entries {
		if e.OperationType == op {
			out = append(out, e)
		}
	}
	return out
}

// --- fake gateway ---

type fakeGateway struct {
	mu sync.Mutex

	createOrderCalls int
	createOrderErr   error

	// fetchStatuses is consumed one per FetchPayment call; the last entry
	// repeats once the script runs out.
	fetchStatuses []string
	fetchCalls    int
	fetchErr      error

	refundCalls int
	refundErr   error
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createOrderCalls++
	if f.createOrderErr != nil {
		return nil, f.createOrderErr
	}
	return &gateway.Order{
		ID:          fmt.Sprintf("order_%d", f.createOrderCalls),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      gateway.RemoteCreated,
	}, nil
}

func (f *fakeGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	idx := f.fetchCalls
	f.fetchCalls++
	if idx >= len(f.fetchStatuses) {
		idx = len(f.fetchStatuses) - 1
	}
	if idx < 0 {
		return nil, errors.New("no scripted fetch status")
	}
	status := f.fetchStatuses[idx]
	return &gateway.Payment{
		ID:       paymentID,
		Status:   status,
		Method:   "card",
		Captured: status == gateway.RemoteCaptured,
	}, nil
}

func (f *fakeGateway) Refund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*gateway.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &gateway.Refund{
		ID:          fmt.Sprintf("rfnd_%d", f.refundCalls),
		PaymentID:   paymentID,
		AmountMinor: amountMinor,
		Status:      "processed",
	}, nil
}

// --- fake metrics ---

type fakeMetrics struct {
	mu          sync.Mutex
	transitions []string
	errorOps    []string
}

func (f *fakeMetrics) RecordTransition(ctx context.Context, from, to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, from+"->"+to)
}

func (f *fakeMetrics) RecordError(ctx context.Context, operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorOps = append(f.errorOps, operation)
}
