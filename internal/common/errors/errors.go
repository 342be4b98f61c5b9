// Package errors provides the standardized error taxonomy for discovery and
// reconciliation.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Discovery codes. Both PROVIDER_UNAVAILABLE and PROVIDER_EMPTY are
	// recovered inside the orchestrator and only ever trigger fallback to
	// the next provider in the chain.
	ErrCodeProviderUnavailable   ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderEmpty         ErrorCode = "PROVIDER_EMPTY"
	ErrCodeAllProvidersExhausted ErrorCode = "ALL_PROVIDERS_EXHAUSTED"

	// Reconciliation codes. RECONCILIATION_FAILED is never recovered
	// locally: a write issued under an unresolved identity would corrupt
	// referential integrity, so it always surfaces to the caller.
	ErrCodeReconciliationFailed ErrorCode = "RECONCILIATION_FAILED"

	// Persistence / request codes used by the restaurant service.
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewProviderUnavailable creates the error an adapter returns when it is
// unconfigured or its network/auth/parsing path failed.
func NewProviderUnavailable(provider string, err error) *StandardError {
	details := "no credentials configured"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   fmt.Sprintf("Provider '%s' unavailable", provider),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderEmpty creates the error an adapter returns on a valid
// zero-result response.
func NewProviderEmpty(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderEmpty,
		Message:   fmt.Sprintf("Provider '%s' returned no results", provider),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllProvidersExhausted creates the defensive final-branch error. The
// static fallback always succeeds, so this should not occur in practice.
func NewAllProvidersExhausted() *StandardError {
	return &StandardError{
		Code:      ErrCodeAllProvidersExhausted,
		Message:   "Every configured provider failed or returned no results",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReconciliationFailed creates the error surfaced to callers when the
// persistence collaborator is unreachable or erroring.
func NewReconciliationFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReconciliationFailed,
		Message:   "Could not resolve place to a persistent identity",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequest creates a non-retryable request validation error.
func NewInvalidRequest(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailed creates a retryable database error.
func NewDatabaseInsertFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// HTTPStatus maps an error code to the status the HTTP layer responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeReconciliationFailed:
		return http.StatusBadGateway
	case ErrCodeProviderUnavailable, ErrCodeProviderEmpty, ErrCodeAllProvidersExhausted:
		return http.StatusServiceUnavailable
	case ErrCodeDatabaseInsertFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsProviderRecoverable reports whether err is one of the provider-level
// outcomes the orchestrator absorbs by moving to the next provider.
func IsProviderRecoverable(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeProviderUnavailable || code == ErrCodeProviderEmpty
}
