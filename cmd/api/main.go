package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/go-payment-orchestrator/internal/audit"
	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
	"github.com/imrishuroy/go-payment-orchestrator/internal/gateway"
	"github.com/imrishuroy/go-payment-orchestrator/internal/handlers"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
	"github.com/imrishuroy/go-payment-orchestrator/internal/metrics"
	"github.com/imrishuroy/go-payment-orchestrator/internal/orchestrator"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterPaymentRoutes(r, cfg)

	return r
}

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
		PendingTTL:    24 * time.Hour,
	})

	// retry jobs go through SQS when a queue is configured; without one the
	// retry endpoint reconciles inline
	var publisher *aws.Publisher
	if queueURL := os.Getenv("RECONCILE_QUEUE_URL"); queueURL != "" {
		publisher = aws.NewPublisher(clients.SQS, queueURL)
	}

	cfg := handlers.HandlerConfig{
		Orchestrator: orch,
		Publisher:    publisher,
		MaxRetries:   5,
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		// the adapter handles proxying; use adapter.ProxyWithContext for proper context propagation
		return adapter.ProxyWithContext(ctx, req)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
