package scoring

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError is a recoverable failure of an external scoring provider
type ProviderError struct {
	Provider  string `json:"provider"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Provider error codes
const (
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeAuthFailed    = "AUTH_FAILED"
	ErrCodeMalformed     = "MALFORMED_RESPONSE"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
)

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// classifyTransportError maps a transport failure to a provider error
func classifyTransportError(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(provider, ErrCodeTimeout, "request timed out", true, err)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return NewProviderError(provider, ErrCodeTimeout, "request timed out", true, err)
	}
	return NewProviderError(provider, ErrCodeUnavailable, "request failed", true, err)
}
