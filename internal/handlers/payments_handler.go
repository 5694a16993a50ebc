package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/go-payment-orchestrator/internal/aws"
	"github.com/imrishuroy/go-payment-orchestrator/internal/ledger"
	"github.com/imrishuroy/go-payment-orchestrator/internal/orchestrator"
	"github.com/imrishuroy/go-payment-orchestrator/internal/validation"
)

// PaymentOrchestrator is the subset of orchestrator operations the HTTP
// layer calls. Tests substitute a stub.
type PaymentOrchestrator interface {
	CreatePayment(ctx context.Context, in orchestrator.CreatePaymentInput) (*orchestrator.CreatePaymentResult, error)
	VerifyPayment(ctx context.Context, in orchestrator.VerifyPaymentInput) (*orchestrator.VerifyPaymentResult, error)
	ReconcileWithRetry(ctx context.Context, paymentID string, maxRetries int) (*orchestrator.ReconcileResult, error)
	RefundPayment(ctx context.Context, in orchestrator.RefundPaymentInput) (*orchestrator.RefundPaymentResult, error)
	CancelPayment(ctx context.Context, paymentID, reason string) (*ledger.PaymentIntent, error)
	GetPayment(ctx context.Context, paymentID string) (*ledger.PaymentIntent, error)
}

// HandlerConfig groups dependencies for the payments handler.
type HandlerConfig struct {
	Orchestrator PaymentOrchestrator
	// Publisher enqueues retry jobs for the reconciler worker. When nil the
	// retry endpoint reconciles inline (local mode).
	Publisher  *aws.Publisher
	MaxRetries int
}

// RegisterPaymentRoutes registers routes for the payments API.
func RegisterPaymentRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/payments", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreatePaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		res, err := cfg.Orchestrator.CreatePayment(ctx, orchestrator.CreatePaymentInput{
			AmountMinor:   req.AmountMinor,
			Currency:      req.Currency,
			CustomerID:    req.CustomerID,
			CorrelationID: req.CorrelationID,
			ActorUserID:   req.ActorUserID,
			Metadata:      req.Metadata,
		})
		if err != nil {
			writeOpError(c, err)
			return
		}

		if res.IsIdempotentReplay {
			c.JSON(http.StatusOK, gin.H{
				"payment":           res.Intent,
				"idempotent_replay": true,
			})
			return
		}
		c.Header("Location", fmt.Sprintf("/payments/%s", res.Intent.PaymentID))
		c.JSON(http.StatusCreated, gin.H{
			"payment":           res.Intent,
			"idempotent_replay": false,
		})
	})

	r.POST("/payments/verify", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		res, err := cfg.Orchestrator.VerifyPayment(ctx, orchestrator.VerifyPaymentInput{
			GatewayOrderID:   req.GatewayOrderID,
			GatewayPaymentID: req.GatewayPaymentID,
			Signature:        req.Signature,
			CorrelationID:    req.CorrelationID,
		})
		if err != nil {
			writeOpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payment":  res.Intent,
			"verified": res.Verified,
		})
	})

	r.GET("/payments/:id", func(c *gin.Context) {
		intent, err := cfg.Orchestrator.GetPayment(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeOpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment": intent})
	})

	r.POST("/payments/:id/retry", func(c *gin.Context) {
		ctx := c.Request.Context()
		paymentID := c.Param("id")

		var req validation.RetryPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		maxRetries := req.MaxRetries
		if maxRetries == 0 {
			maxRetries = cfg.MaxRetries
		}

		// ensure the intent exists before enqueueing work for it
		if _, err := cfg.Orchestrator.GetPayment(ctx, paymentID); err != nil {
			writeOpError(c, err)
			return
		}

		if cfg.Publisher != nil {
			msg := aws.ReconcileMessage{
				PaymentID:     paymentID,
				CorrelationID: req.CorrelationID,
				MaxRetries:    maxRetries,
			}
			attrs := map[string]string{
				"payment_id":     paymentID,
				"correlation_id": req.CorrelationID,
			}
			if err := cfg.Publisher.SendReconcileMessage(ctx, msg, attrs); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error":   "enqueue_failed",
					"message": err.Error(),
				})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"payment_id": paymentID,
				"message":    "reconciliation enqueued",
			})
			return
		}

		// no queue configured: reconcile inline
		res, err := cfg.Orchestrator.ReconcileWithRetry(ctx, paymentID, maxRetries)
		if err != nil {
			writeOpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payment_id":   paymentID,
			"success":      res.Success,
			"final_status": res.FinalStatus,
			"retry_count":  res.RetryCount,
		})
	})

	r.POST("/payments/:id/refund", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.RefundPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		res, err := cfg.Orchestrator.RefundPayment(ctx, orchestrator.RefundPaymentInput{
			PaymentID:     c.Param("id"),
			AmountMinor:   req.AmountMinor,
			Reason:        req.Reason,
			CorrelationID: req.CorrelationID,
			ActorUserID:   req.ActorUserID,
		})
		if err != nil {
			writeOpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payment": res.Intent,
			"refund":  res.Refund,
		})
	})

	r.POST("/payments/:id/cancel", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CancelPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		intent, err := cfg.Orchestrator.CancelPayment(ctx, c.Param("id"), req.Reason)
		if err != nil {
			writeOpError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment": intent})
	})
}

// writeOpError maps orchestrator error kinds onto HTTP statuses with a
// stable error code in the body.
func writeOpError(c *gin.Context, err error) {
	kind := orchestrator.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case orchestrator.KindValidation:
		status = http.StatusBadRequest
	case orchestrator.KindNotFound:
		status = http.StatusNotFound
	case orchestrator.KindConflict, orchestrator.KindInvalidState:
		status = http.StatusConflict
	case orchestrator.KindSignature:
		status = http.StatusUnauthorized
	case orchestrator.KindGateway:
		status = http.StatusBadGateway
	case orchestrator.KindRetryExhausted:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{
		"error":   string(kind),
		"message": orchestrator.MessageOf(err),
	})
}
