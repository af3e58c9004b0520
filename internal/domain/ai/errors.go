package ai

import (
	"errors"
	"net/http"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse is returned when the provider answers without any choice content.
var ErrEmptyResponse = errors.New("no response received")

// GatewayError carries the provider's own error message. Error() returns the
// message verbatim so callers can prefix it with the failing step.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return "API error occurred"
	}
	return e.Message
}

// Is lets errors.Is(err, ErrQuotaExceeded) match rate-limit responses.
func (e *GatewayError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.StatusCode == http.StatusTooManyRequests
}
