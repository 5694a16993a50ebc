package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-payment-orchestrator/internal/audit"
	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
	"github.com/imrishuroy/go-payment-orchestrator/internal/gateway"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
	"github.com/imrishuroy/go-payment-orchestrator/internal/metrics"
	"github.com/imrishuroy/go-payment-orchestrator/internal/orchestrator"
)

func main() {
	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	store := ledger.NewStore(clients.DynamoDB,
		envOr("INTENTS_TABLE", "payment_intents"),
		envOr("IDEMPOTENCY_TABLE", "payment_idempotency"),
		24*time.Hour)
	sink := audit.NewSink(clients.DynamoDB, envOr("AUDIT_TABLE", "audit_entries"))
	recorder := metrics.NewRecorder(clients.CloudWatch, envOr("METRICS_NAMESPACE", "PaymentOrchestrator"))
	gw := gateway.NewHTTPClient(
		os.Getenv("GATEWAY_BASE_URL"),
		os.Getenv("GATEWAY_KEY_ID"),
		os.Getenv("GATEWAY_KEY_SECRET"))

	orch := orchestrator.New(store, sink, gw, recorder, orchestrator.Config{
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	})

	p := NewProcessor(orch, 5)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"payment_id":"local-payment-1","max_retries":3}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{
					Body: testBody,
				},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
