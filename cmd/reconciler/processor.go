package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
	"github.com/imrishuroy/go-payment-orchestrator/internal/orchestrator"
)

// Reconciler is the orchestrator operation the worker drives.
type Reconciler interface {
	ReconcileWithRetry(ctx context.Context, paymentID string, maxRetries int) (*orchestrator.ReconcileResult, error)
}

// Processor handles SQS reconcile messages and drives payment settlement.
type Processor struct {
	reconciler        Reconciler
	defaultMaxRetries int
}

// NewProcessor creates a worker processor around a reconciler.
func NewProcessor(rec Reconciler, defaultMaxRetries int) *Processor {
	return &Processor{
		reconciler:        rec,
		defaultMaxRetries: defaultMaxRetries,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			log.Printf("reconciler error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg aws.ReconcileMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.PaymentID == "" {
		return fmt.Errorf("reconcile message missing payment_id: %s", rec.Body)
	}

	maxRetries := msg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = p.defaultMaxRetries
	}

	log.Printf("[reconciler] received payment=%s corr=%s max_retries=%d",
		msg.PaymentID, msg.CorrelationID, maxRetries)

	res, err := p.reconciler.ReconcileWithRetry(ctx, msg.PaymentID, maxRetries)
	if err != nil {
		var oe *orchestrator.OpError
		if errors.As(err, &oe) && oe.Kind == orchestrator.KindNotFound {
			// nothing to reconcile and redelivery cannot fix it; swallow so
			// the message does not loop through the queue
			log.Printf("[reconciler] payment=%s not found, dropping message", msg.PaymentID)
			return nil
		}
		// exhaustion and transient failures go back to SQS for redrive
		return fmt.Errorf("reconcile payment=%s: %w", msg.PaymentID, err)
	}

	log.Printf("[reconciler] payment=%s settled status=%s retries=%d success=%v",
		msg.PaymentID, res.FinalStatus, res.RetryCount, res.Success)
	return nil
}
