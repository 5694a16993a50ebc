package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-payment-orchestrator/internal/audit"
	"github.com/imrishuroy/go-payment-orchestrator/internal/gateway"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
	"github.com/imrishuroy/go-payment-orchestrator/internal/retry"
)

const entityPaymentIntent = "payment_intent"

// Orchestrator runs the payment state machine. It holds no payment state of
// its own; every operation reads from and writes to the ledger. All
// collaborators are constructor-injected so tests can substitute fakes.
type Orchestrator struct {
	ledger  Ledger
	sink    AuditSink
	gateway gateway.Client
	metrics Metrics
	cfg     Config
	nowFunc func() time.Time
}

// New returns an Orchestrator. Zero-value Config fields get defaults:
// PendingTTL 24h, MaxRetries 5, backoff 1s doubling capped at 30s.
func New(l Ledger, sink AuditSink, gw gateway.Client, m Metrics, cfg Config) *Orchestrator {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = defaultPendingTTL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	def := retry.DefaultPolicy()
	if cfg.Backoff.BaseDelay <= 0 {
		cfg.Backoff.BaseDelay = def.BaseDelay
	}
	if cfg.Backoff.MaxDelay <= 0 {
		cfg.Backoff.MaxDelay = def.MaxDelay
	}
	if cfg.Backoff.Multiplier <= 0 {
		cfg.Backoff.Multiplier = def.Multiplier
	}
	return &Orchestrator{
		ledger:  l,
		sink:    sink,
		gateway: gw,
		metrics: m,
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// CreatePayment creates a payment intent idempotently. A repeated call with
// the same correlation id and payload returns the original intent with
// IsIdempotentReplay=true and causes no second gateway order.
func (o *Orchestrator) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	key := deriveIdempotencyKey(in)

	// ledger-first lookup keeps the create race window small
	existing, err := o.ledger.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		o.auditCreate(ctx, in, existing, true, nil)
		return &CreatePaymentResult{Intent: existing, IsIdempotentReplay: true}, nil
	}

	order, err := o.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		AmountMinor: in.AmountMinor,
		Currency:    in.Currency,
		Receipt:     in.CorrelationID,
		Notes:       in.Metadata,
	})
	if err != nil {
		opErr := newError(KindGateway, "payment gateway order creation failed", err)
		o.recordError(ctx, string(audit.OpPaymentCreate))
		o.auditCreate(ctx, in, nil, false, opErr)
		// nothing was persisted: the idempotency key stays uncommitted and
		// the caller may safely retry
		return nil, opErr
	}

	now := o.nowFunc()
	intent := &ledger.PaymentIntent{
		PaymentID:      uuid.NewString(),
		CorrelationID:  in.CorrelationID,
		IdempotencyKey: key,
		CustomerID:     in.CustomerID,
		GatewayOrderID: order.ID,
		AmountMinor:    in.AmountMinor,
		Currency:       in.Currency,
		Status:         ledger.StatusPending,
		Metadata:       in.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(o.cfg.PendingTTL).Unix(),
	}

	created, err := o.ledger.CreateIfAbsent(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("persist intent: %w", err)
	}
	if !created {
		// lost the create race: our gateway order is orphaned and must not
		// be used; log it for the sweep and return the winner's intent
		log.Printf("[orchestrator] discarding orphaned gateway order %s after losing create race (correlation=%s)",
			order.ID, in.CorrelationID)
		winner, err := o.ledger.FindByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("lookup after lost create race: %w", err)
		}
		if winner == nil {
			return nil, fmt.Errorf("idempotency key %s committed but intent missing", key)
		}
		o.auditCreate(ctx, in, winner, true, nil)
		return &CreatePaymentResult{Intent: winner, IsIdempotentReplay: true}, nil
	}

	o.auditCreate(ctx, in, intent, false, nil)
	return &CreatePaymentResult{Intent: intent, IsIdempotentReplay: false}, nil
}

// VerifyPayment handles a signed gateway callback. An invalid signature is
// fatal: the intent is failed and SignatureError returned. A valid signature
// triggers an authoritative status fetch and the corresponding transition.
func (o *Orchestrator) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error) {
	if in.GatewayOrderID == "" || in.GatewayPaymentID == "" || in.Signature == "" {
		return nil, newError(KindValidation, "gateway order id, payment id and signature are required", nil)
	}

	intent, err := o.ledger.FindByGatewayOrderID(ctx, in.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("lookup by gateway order id: %w", err)
	}
	if intent == nil {
		return nil, newError(KindNotFound, "no payment intent for gateway order "+in.GatewayOrderID, nil)
	}

	if !gateway.VerifySignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature, o.cfg.WebhookSecret) {
		const reason = "signature verification failed"
		opErr := newError(KindSignature, reason, nil)
		if ledger.CanTransition(intent.Status, ledger.StatusFailed) {
			updated, uerr := o.ledger.UpdateStatus(ctx, intent.PaymentID, intent.Status, ledger.StatusFailed, ledger.UpdateFields{
				FailureReason: reason,
			})
			if uerr != nil {
				log.Printf("[orchestrator] failed to mark intent %s FAILED after bad signature: %v", intent.PaymentID, uerr)
			} else {
				o.recordTransition(ctx, intent.Status, ledger.StatusFailed)
				intent = updated
			}
		}
		o.recordError(ctx, string(audit.OpPaymentVerify))
		o.appendAudit(ctx, &audit.Entry{
			EntityType:    entityPaymentIntent,
			EntityID:      intent.PaymentID,
			Operation:     "verify payment callback",
			OperationType: audit.OpPaymentVerify,
			Status:        audit.StatusFailure,
			ActorUserID:   in.ActorUserID,
			CorrelationID: in.CorrelationID,
			AfterState:    snapshot(intent),
			ErrorMessage:  reason,
			ErrorCode:     string(KindSignature),
			// security-relevant: keep longer than standard
			RetentionPolicy: audit.RetentionExtended,
		})
		return nil, opErr
	}

	payment, err := o.gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if err != nil {
		opErr := newError(KindGateway, "authoritative status fetch failed", err)
		o.recordError(ctx, string(audit.OpPaymentVerify))
		o.appendAudit(ctx, &audit.Entry{
			EntityType:    entityPaymentIntent,
			EntityID:      intent.PaymentID,
			Operation:     "verify payment callback",
			OperationType: audit.OpPaymentVerify,
			Status:        audit.StatusError,
			ActorUserID:   in.ActorUserID,
			CorrelationID: in.CorrelationID,
			BeforeState:   snapshot(intent),
			ErrorMessage:  opErr.Message,
			ErrorCode:     string(KindGateway),
		})
		return nil, opErr
	}

	before := snapshot(intent)
	next, fields := o.mapRemoteStatus(payment)
	fields.GatewayPaymentID = in.GatewayPaymentID

	if next != intent.Status {
		updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, intent.Status, next, fields)
		if err != nil {
			if errors.Is(err, ledger.ErrStatusMismatch) {
				return nil, newError(KindConflict, "payment intent changed concurrently", err)
			}
			if errors.Is(err, ledger.ErrIllegalTransition) {
				return nil, newError(KindInvalidState,
					fmt.Sprintf("cannot move payment from %s to %s", intent.Status, next), err)
			}
			return nil, fmt.Errorf("persist verified status: %w", err)
		}
		o.recordTransition(ctx, intent.Status, next)
		intent = updated
	}

	o.appendAudit(ctx, &audit.Entry{
		EntityType:    entityPaymentIntent,
		EntityID:      intent.PaymentID,
		Operation:     "verify payment callback",
		OperationType: audit.OpPaymentVerify,
		Status:        audit.StatusSuccess,
		ActorUserID:   in.ActorUserID,
		CorrelationID: in.CorrelationID,
		BeforeState:   before,
		AfterState:    snapshot(intent),
	})
	return &VerifyPaymentResult{Intent: intent, Verified: true}, nil
}

// ReconcileWithRetry polls the gateway until the intent settles or retries
// exhaust. The gateway is eventually consistent after capture, so each
// attempt after the first waits with exponential backoff. The loop honors
// context cancellation and never retries forever. A FAILED intent is
// reopened through the FAILED -> PROCESSING edge before polling resumes;
// COMPLETED, CANCELLED and REFUNDED duplicates are swallowed.
func (o *Orchestrator) ReconcileWithRetry(ctx context.Context, paymentID string, maxRetries int) (*ReconcileResult, error) {
	if maxRetries <= 0 {
		maxRetries = o.cfg.MaxRetries
	}

	intent, err := o.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("lookup intent: %w", err)
	}
	if intent == nil {
		return nil, newError(KindNotFound, "payment intent "+paymentID+" not found", nil)
	}

	if intent.Status == ledger.StatusFailed {
		// explicit retry of a failed payment: re-enter the state machine
		// before polling
		before := snapshot(intent)
		updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, ledger.StatusFailed, ledger.StatusProcessing, ledger.UpdateFields{})
		if err != nil {
			if !errors.Is(err, ledger.ErrStatusMismatch) {
				return nil, fmt.Errorf("reopen failed intent for retry: %w", err)
			}
			// moved concurrently; reload and let the settled check decide
			if refreshed, rerr := o.ledger.FindByID(ctx, paymentID); rerr == nil && refreshed != nil {
				intent = refreshed
			}
		} else {
			o.recordTransition(ctx, ledger.StatusFailed, ledger.StatusProcessing)
			o.appendAudit(ctx, &audit.Entry{
				EntityType:    entityPaymentIntent,
				EntityID:      intent.PaymentID,
				Operation:     "retry failed payment",
				OperationType: audit.OpPaymentReconcile,
				Status:        audit.StatusSuccess,
				CorrelationID: intent.CorrelationID,
				BeforeState:   before,
				AfterState:    snapshot(updated),
			})
			intent = updated
		}
	}

	if ledger.IsSettled(intent.Status) {
		// duplicate reconcile request; nothing to do
		return &ReconcileResult{
			Success:     intent.Status == ledger.StatusCompleted,
			FinalStatus: intent.Status,
			RetryCount:  intent.RetryCount,
		}, nil
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := o.cfg.Backoff.Wait(ctx, attempt-1); err != nil {
				return nil, fmt.Errorf("reconciliation cancelled: %w", err)
			}
			if err := o.ledger.IncrementRetryCount(ctx, intent.PaymentID); err != nil {
				log.Printf("[orchestrator] increment retry count for %s: %v", intent.PaymentID, err)
			} else {
				intent.RetryCount++
			}
		}

		if intent.GatewayPaymentID == "" {
			// no payment attempt at the gateway yet; keep polling the ledger
			// in case a callback lands mid-loop
			refreshed, err := o.ledger.FindByID(ctx, intent.PaymentID)
			if err == nil && refreshed != nil {
				intent = refreshed
			}
			if ledger.IsSettled(intent.Status) {
				return &ReconcileResult{
					Success:     intent.Status == ledger.StatusCompleted,
					FinalStatus: intent.Status,
					RetryCount:  intent.RetryCount,
				}, nil
			}
			continue
		}

		payment, err := o.gateway.FetchPayment(ctx, intent.GatewayPaymentID)
		if err != nil {
			// transient: the loop itself is the retry mechanism
			log.Printf("[orchestrator] reconcile fetch for %s failed (attempt %d): %v", intent.PaymentID, attempt, err)
			continue
		}

		next, fields := o.mapRemoteStatus(payment)
		if next != intent.Status && ledger.CanTransition(intent.Status, next) {
			before := snapshot(intent)
			updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, intent.Status, next, fields)
			if err != nil {
				if errors.Is(err, ledger.ErrStatusMismatch) {
					// someone else moved it; reload and reassess
					if refreshed, rerr := o.ledger.FindByID(ctx, intent.PaymentID); rerr == nil && refreshed != nil {
						intent = refreshed
					}
					if ledger.IsSettled(intent.Status) {
						return &ReconcileResult{
							Success:     intent.Status == ledger.StatusCompleted,
							FinalStatus: intent.Status,
							RetryCount:  intent.RetryCount,
						}, nil
					}
					continue
				}
				return nil, fmt.Errorf("persist reconciled status: %w", err)
			}
			o.recordTransition(ctx, intent.Status, next)
			o.appendAudit(ctx, &audit.Entry{
				EntityType:    entityPaymentIntent,
				EntityID:      intent.PaymentID,
				Operation:     "reconcile payment status",
				OperationType: audit.OpPaymentReconcile,
				Status:        audit.StatusSuccess,
				CorrelationID: intent.CorrelationID,
				BeforeState:   before,
				AfterState:    snapshot(updated),
			})
			intent = updated
		}

		if intent.Status == ledger.StatusCompleted || intent.Status == ledger.StatusFailed {
			return &ReconcileResult{
				Success:     intent.Status == ledger.StatusCompleted,
				FinalStatus: intent.Status,
				RetryCount:  intent.RetryCount,
			}, nil
		}
	}

	// retries exhausted without reaching a terminal state: force-fail
	const reason = "status reconciliation retries exhausted"
	before := snapshot(intent)
	if ledger.CanTransition(intent.Status, ledger.StatusFailed) {
		if updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, intent.Status, ledger.StatusFailed, ledger.UpdateFields{
			FailureReason: reason,
		}); err != nil {
			log.Printf("[orchestrator] force-fail after exhaustion for %s: %v", intent.PaymentID, err)
		} else {
			o.recordTransition(ctx, intent.Status, ledger.StatusFailed)
			intent = updated
		}
	}
	o.recordError(ctx, string(audit.OpPaymentReconcile))
	o.appendAudit(ctx, &audit.Entry{
		EntityType:    entityPaymentIntent,
		EntityID:      intent.PaymentID,
		Operation:     "reconcile payment status",
		OperationType: audit.OpPaymentReconcile,
		Status:        audit.StatusFailure,
		CorrelationID: intent.CorrelationID,
		BeforeState:   before,
		AfterState:    snapshot(intent),
		ErrorMessage:  reason,
		ErrorCode:     string(KindRetryExhausted),
	})
	return &ReconcileResult{
			Success:     false,
			FinalStatus: intent.Status,
			RetryCount:  intent.RetryCount,
		}, newError(KindRetryExhausted,
			fmt.Sprintf("payment %s did not settle after %d attempts", intent.PaymentID, maxRetries), nil)
}

// RefundPayment issues a full or partial refund for a completed payment.
// Any refund, partial or full, moves the intent to REFUNDED; partial amounts
// are recorded in the refund metadata.
func (o *Orchestrator) RefundPayment(ctx context.Context, in RefundPaymentInput) (*RefundPaymentResult, error) {
	if in.AmountMinor <= 0 {
		return nil, newError(KindValidation, "refund amount must be positive", nil)
	}

	intent, err := o.ledger.FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("lookup intent: %w", err)
	}
	if intent == nil {
		return nil, newError(KindNotFound, "payment intent "+in.PaymentID+" not found", nil)
	}
	if intent.Status != ledger.StatusCompleted {
		return nil, newError(KindInvalidState,
			fmt.Sprintf("refund requires a COMPLETED payment, current status is %s", intent.Status), nil)
	}
	if in.AmountMinor > intent.AmountMinor {
		return nil, newError(KindValidation,
			fmt.Sprintf("refund amount %d exceeds original amount %d", in.AmountMinor, intent.AmountMinor), nil)
	}

	remote, err := o.gateway.Refund(ctx, intent.GatewayPaymentID, in.AmountMinor, map[string]string{
		"reason": in.Reason,
	})
	if err != nil {
		opErr := newError(KindGateway, "gateway refund failed", err)
		o.recordError(ctx, string(audit.OpPaymentRefund))
		o.appendAudit(ctx, &audit.Entry{
			EntityType:    entityPaymentIntent,
			EntityID:      intent.PaymentID,
			Operation:     "refund payment",
			OperationType: audit.OpPaymentRefund,
			Status:        audit.StatusError,
			ActorUserID:   in.ActorUserID,
			CorrelationID: in.CorrelationID,
			BeforeState:   snapshot(intent),
			ErrorMessage:  opErr.Message,
			ErrorCode:     string(KindGateway),
		})
		return nil, opErr
	}

	refund := &ledger.RefundInfo{
		GatewayRefundID: remote.ID,
		AmountMinor:     in.AmountMinor,
		Reason:          in.Reason,
		RefundedAt:      o.nowFunc(),
	}

	before := snapshot(intent)
	updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, ledger.StatusCompleted, ledger.StatusRefunded, ledger.UpdateFields{
		Refund: refund,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrStatusMismatch) {
			return nil, newError(KindConflict, "payment intent changed concurrently", err)
		}
		return nil, fmt.Errorf("persist refund: %w", err)
	}
	o.recordTransition(ctx, ledger.StatusCompleted, ledger.StatusRefunded)
	o.appendAudit(ctx, &audit.Entry{
		EntityType:    entityPaymentIntent,
		EntityID:      intent.PaymentID,
		Operation:     "refund payment",
		OperationType: audit.OpPaymentRefund,
		Status:        audit.StatusSuccess,
		ActorUserID:   in.ActorUserID,
		CorrelationID: in.CorrelationID,
		BeforeState:   before,
		AfterState:    snapshot(updated),
		// money moved back: keep longer than standard
		RetentionPolicy: audit.RetentionExtended,
	})
	return &RefundPaymentResult{Intent: updated, Refund: refund}, nil
}

// CancelPayment cancels an intent that has not settled yet. Cancellation is
// a status transition, never a delete.
func (o *Orchestrator) CancelPayment(ctx context.Context, paymentID, reason string) (*ledger.PaymentIntent, error) {
	intent, err := o.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("lookup intent: %w", err)
	}
	if intent == nil {
		return nil, newError(KindNotFound, "payment intent "+paymentID+" not found", nil)
	}
	if intent.Status != ledger.StatusPending && intent.Status != ledger.StatusProcessing {
		return nil, newError(KindInvalidState,
			fmt.Sprintf("cancel requires PENDING or PROCESSING, current status is %s", intent.Status), nil)
	}

	before := snapshot(intent)
	updated, err := o.ledger.UpdateStatus(ctx, intent.PaymentID, intent.Status, ledger.StatusCancelled, ledger.UpdateFields{
		FailureReason: reason,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrStatusMismatch) {
			return nil, newError(KindConflict, "payment intent changed concurrently", err)
		}
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}
	o.recordTransition(ctx, intent.Status, ledger.StatusCancelled)
	o.appendAudit(ctx, &audit.Entry{
		EntityType:    entityPaymentIntent,
		EntityID:      intent.PaymentID,
		Operation:     "cancel payment",
		OperationType: audit.OpPaymentCancel,
		Status:        audit.StatusSuccess,
		CorrelationID: intent.CorrelationID,
		BeforeState:   before,
		AfterState:    snapshot(updated),
	})
	return updated, nil
}

// GetPayment reads one intent.
func (o *Orchestrator) GetPayment(ctx context.Context, paymentID string) (*ledger.PaymentIntent, error) {
	intent, err := o.ledger.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("lookup intent: %w", err)
	}
	if intent == nil {
		return nil, newError(KindNotFound, "payment intent "+paymentID+" not found", nil)
	}
	return intent, nil
}

// mapRemoteStatus maps the gateway's payment state onto the local state
// machine: captured -> COMPLETED, failed -> FAILED, authorized-but-not-
// captured (and anything else in flight) -> PROCESSING.
func (o *Orchestrator) mapRemoteStatus(p *gateway.Payment) (ledger.Status, ledger.UpdateFields) {
	fields := ledger.UpdateFields{
		GatewayPaymentID: p.ID,
		PaymentMethod:    p.Method,
	}
	switch {
	case p.Captured || p.Status == gateway.RemoteCaptured:
		now := o.nowFunc()
		fields.CompletedAt = &now
		return ledger.StatusCompleted, fields
	case p.Status == gateway.RemoteFailed:
		reason := p.ErrorReason
		if reason == "" {
			reason = "gateway reported failure"
		}
		fields.FailureReason = reason
		return ledger.StatusFailed, fields
	default:
		return ledger.StatusProcessing, fields
	}
}

func validateCreateInput(in CreatePaymentInput) error {
	switch {
	case in.AmountMinor <= 0:
		return newError(KindValidation, "amount must be positive", nil)
	case len(in.Currency) != 3:
		return newError(KindValidation, "currency must be a 3-letter ISO 4217 code", nil)
	case in.CustomerID == "":
		return newError(KindValidation, "customer id is required", nil)
	case in.CorrelationID == "":
		return newError(KindValidation, "correlation id is required", nil)
	}
	return nil
}

// deriveIdempotencyKey hashes the logical request: correlation id, customer,
// amount, currency, and metadata in sorted key order. Identical requests map
// to identical keys; any payload change produces a new key.
func deriveIdempotencyKey(in CreatePaymentInput) string {
	h := sha256.New()
	io.WriteString(h, in.CorrelationID)
	io.WriteString(h, "|")
	io.WriteString(h, in.CustomerID)
	io.WriteString(h, "|")
	io.WriteString(h, strconv.FormatInt(in.AmountMinor, 10))
	io.WriteString(h, "|")
	io.WriteString(h, in.Currency)

	keys := make([]string, 0, len(in.Metadata))
	for k := range in.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		io.WriteString(h, "|")
		io.WriteString(h, k)
		io.WriteString(h, "=")
		io.WriteString(h, in.Metadata[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (o *Orchestrator) auditCreate(ctx context.Context, in CreatePaymentInput, intent *ledger.PaymentIntent, replay bool, opErr *OpError) {
	entry := &audit.Entry{
		EntityType:    entityPaymentIntent,
		Operation:     "create payment",
		OperationType: audit.OpPaymentCreate,
		Status:        audit.StatusSuccess,
		ActorUserID:   in.ActorUserID,
		CorrelationID: in.CorrelationID,
	}
	if intent != nil {
		entry.EntityID = intent.PaymentID
		entry.AfterState = snapshot(intent)
	}
	if replay {
		entry.Operation = "create payment (idempotent replay)"
	}
	if opErr != nil {
		entry.Status = audit.StatusError
		entry.ErrorMessage = opErr.Message
		entry.ErrorCode = string(opErr.Kind)
	}
	o.appendAudit(ctx, entry)
}

// appendAudit is best-effort: audit durability never blocks payment
// processing. Failures are logged and dropped.
func (o *Orchestrator) appendAudit(ctx context.Context, entry *audit.Entry) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Append(ctx, entry); err != nil {
		log.Printf("[orchestrator] audit append failed (non-blocking): %v", err)
	}
}

func (o *Orchestrator) recordTransition(ctx context.Context, from, to ledger.Status) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordTransition(ctx, string(from), string(to))
}

func (o *Orchestrator) recordError(ctx context.Context, operation string) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordError(ctx, operation)
}

// snapshot renders an intent as an opaque state map for audit entries.
func snapshot(intent *ledger.PaymentIntent) map[string]any {
	if intent == nil {
		return nil
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
