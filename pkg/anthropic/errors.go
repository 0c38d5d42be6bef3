package anthropic

import (
	"fmt"
	"strings"
	"time"
)

// maxErrorBody caps how much of a provider error body is kept for diagnostics.
const maxErrorBody = 300

// APIError is a non-2xx answer from the Anthropic API, reduced to the fields
// the retry and error-mapping layers need. The raw body is truncated and the
// credential is never part of it.
type APIError struct {
	StatusCode int
	// ErrType is the structured error type reported by the API
	// (e.g. "rate_limit_error", "overloaded_error", "invalid_request_error").
	ErrType string
	// Message is the provider's error message, truncated to maxErrorBody.
	Message string
	// RetryAfter is the parsed retry-after hint, 0 when the response had none.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic: API %d: %s", e.StatusCode, e.Message)
}

// IsRateLimit reports whether the provider is throttling this account.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == 429
}

// IsOverloaded reports whether the provider is shedding load (HTTP 529).
func (e *APIError) IsOverloaded() bool {
	return e.StatusCode == 529
}

// IsRetryable reports whether a later identical call may succeed.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimit() || e.IsOverloaded()
}

// IsBilling reports whether the account has run out of credits. The API
// reports this through a billing_error type on newer versions; older
// responses only carry it in the message text, so the substring check stays
// as a fallback.
func (e *APIError) IsBilling() bool {
	if e.ErrType == "billing_error" {
		return true
	}
	return strings.Contains(e.Message, "credit balance")
}

// Truncate shortens a provider message to the diagnostic cap.
func Truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
