package validation

import (
	"testing"
)

func TestCreatePaymentRequest_Valid(t *testing.T) {
	v := New()

	req := CreatePaymentRequest{
		AmountMinor:   1000,
		Currency:      "INR",
		CustomerID:    "cust-123",
		CorrelationID: "corr-abc",
		Metadata:      map[string]string{"note": "test"},
	}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreatePaymentRequest_UnsupportedCurrency(t *testing.T) {
	v := New()

	req := CreatePaymentRequest{
		AmountMinor:   1000,
		Currency:      "XYZ", // well-formed but not supported
		CustomerID:    "cust-123",
		CorrelationID: "corr-abc",
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for unsupported currency, got nil")
	}
}

func TestCreatePaymentRequest_MissingFields(t *testing.T) {
	v := New()

	req := CreatePaymentRequest{
		// CustomerID and CorrelationID missing
		AmountMinor: 0,
		Currency:    "IN", // wrong length
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}

func TestRefundPaymentRequest_RequiresPositiveAmount(t *testing.T) {
	v := New()

	req := RefundPaymentRequest{
		AmountMinor:   0,
		CorrelationID: "corr-abc",
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for zero refund amount, got nil")
	}
}

func TestRetryPaymentRequest_MaxRetriesBounds(t *testing.T) {
	v := New()

	if err := v.Struct(RetryPaymentRequest{MaxRetries: 0}); err != nil {
		t.Fatalf("zero max_retries should mean server default, got error: %v", err)
	}
	if err := v.Struct(RetryPaymentRequest{MaxRetries: 11}); err == nil {
		t.Fatal("expected validation error for max_retries above bound, got nil")
	}
}
