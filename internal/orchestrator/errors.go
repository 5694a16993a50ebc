package orchestrator

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable error code surfaced to callers.
type Kind string

const (
	KindValidation     Kind = "validation_error"  // bad input, never retried
	KindNotFound       Kind = "not_found"         // entity missing
	KindConflict       Kind = "conflict"          // optimistic update lost a race
	KindSignature      Kind = "signature_invalid" // fatal, security-relevant
	KindGateway        Kind = "gateway_error"     // remote call failed, transient
	KindRetryExhausted Kind = "retry_exhausted"   // reconciliation gave up
	KindInvalidState   Kind = "invalid_state"     // operation from wrong status
)

// OpError is a typed orchestrator error: a stable code plus a human message.
// Internal causes are wrapped but never exposed across the API boundary.
type OpError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OpError) Unwrap() error { return e.Err }

func newError(kind Kind, message string, cause error) *OpError {
	return &OpError{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the error kind, defaulting to gateway_error for plain
// errors so unknown failures stay in the retryable bucket.
func KindOf(err error) Kind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindGateway
}

// MessageOf extracts the human message, if any.
func MessageOf(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Message
	}
	return "internal error"
}
