// Package aicall issues single logical requests to the Anthropic Messages API
// with bounded retry, and classifies every outcome into a tagged Result so
// nothing ever escapes the caller boundary as a raw error.
package aicall

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/digpatho/growth-api/pkg/anthropic"
)

// Kind discriminates the outcome of one logical call.
type Kind int

const (
	// KindSuccess carries a parsed MessageResponse.
	KindSuccess Kind = iota
	// KindRateLimited means the provider throttled every attempt (HTTP 429).
	KindRateLimited
	// KindOverloaded means the provider shed load on every attempt (HTTP 529).
	KindOverloaded
	// KindNetworkError means no attempt produced an HTTP response at all.
	KindNetworkError
	// KindNoCredits means the account has no billing credits; not retried.
	KindNoCredits
	// KindFatal covers every other failure; not retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindRateLimited:
		return "rate_limited"
	case KindOverloaded:
		return "overloaded"
	case KindNetworkError:
		return "network_error"
	case KindNoCredits:
		return "no_credits"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one logical call, retries included.
type Result struct {
	Kind       Kind
	Response   *anthropic.MessageResponse // set only for KindSuccess
	StatusCode int                        // last HTTP status, 0 for transport failures
	Message    string                     // truncated provider message for diagnostics
}

// IsThrottled reports whether this outcome is transient: provider throttling,
// load shedding, or no response at all. Retrying later may succeed.
func (r Result) IsThrottled() bool {
	return r.Kind == KindRateLimited || r.Kind == KindOverloaded || r.Kind == KindNetworkError
}

// DefaultSchedule is the fixed backoff schedule between attempts. Its length
// determines the retry count: len+1 total attempts.
var DefaultSchedule = []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}

// maxRetryAfter caps how long a provider retry-after hint can push one delay.
const maxRetryAfter = 30 * time.Second

// SleepFunc suspends for d or until ctx is done. Injected in tests.
type SleepFunc func(ctx context.Context, d time.Duration)

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Caller wraps an Anthropic client with the retry policy shared by the
// proxy, discovery and enrichment flows.
type Caller struct {
	client   anthropic.Client
	schedule []time.Duration
	sleep    SleepFunc
	service  string
}

// Option configures a Caller.
type Option func(*Caller)

// WithSchedule overrides the backoff schedule (and therefore the retry count).
func WithSchedule(schedule []time.Duration) Option {
	return func(c *Caller) {
		if len(schedule) > 0 {
			c.schedule = schedule
		}
	}
}

// WithSleep overrides the suspension function. Tests use this to record
// delays instead of waiting.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Caller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithServiceName sets the service tag used in retry log lines.
func WithServiceName(name string) Option {
	return func(c *Caller) {
		c.service = name
	}
}

// New creates a Caller around client with the default 3s/6s/12s schedule.
func New(client anthropic.Client, opts ...Option) *Caller {
	c := &Caller{
		client:   client,
		schedule: DefaultSchedule,
		sleep:    sleepWithContext,
		service:  "anthropic",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call performs one logical request with up to len(schedule) retries on
// 429/529/transport failures. It never returns an error: every outcome is a
// Result, and exhausted retries surface as the last-seen retryable kind.
func (c *Caller) Call(ctx context.Context, req anthropic.MessageRequest) Result {
	if strings.TrimSpace(req.UserText()) == "" {
		return Result{Kind: KindFatal, Message: "empty user message"}
	}

	attempts := len(c.schedule) + 1
	var last Result

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.client.CreateMessage(ctx, req)
		if err == nil {
			return Result{Kind: KindSuccess, Response: resp, StatusCode: 200}
		}

		var retryable bool
		last, retryable = classify(err)
		if !retryable || ctx.Err() != nil {
			return last
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.delayFor(attempt, err)
		zap.L().Warn("retrying provider call",
			zap.String("service", c.service),
			zap.String("model", req.Model),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", attempts-1),
			zap.Duration("delay", delay),
			zap.Int("status", last.StatusCode),
			zap.String("cause", last.Kind.String()),
		)
		c.sleep(ctx, delay)
	}

	return last
}

// delayFor returns the backoff before the next attempt, honoring an explicit
// retry-after hint (capped) over the fixed schedule.
func (c *Caller) delayFor(attempt int, err error) time.Duration {
	var apierr *anthropic.APIError
	if errors.As(err, &apierr) && apierr.RetryAfter > 0 {
		if apierr.RetryAfter > maxRetryAfter {
			return maxRetryAfter
		}
		return apierr.RetryAfter
	}
	return c.schedule[attempt]
}

// classify maps a client error to a Result and reports whether it is worth
// retrying.
func classify(err error) (Result, bool) {
	var apierr *anthropic.APIError
	if errors.As(err, &apierr) {
		switch {
		case apierr.IsBilling():
			return Result{Kind: KindNoCredits, StatusCode: apierr.StatusCode, Message: apierr.Message}, false
		case apierr.IsRateLimit():
			return Result{Kind: KindRateLimited, StatusCode: apierr.StatusCode, Message: apierr.Message}, true
		case apierr.IsOverloaded():
			return Result{Kind: KindOverloaded, StatusCode: apierr.StatusCode, Message: apierr.Message}, true
		default:
			return Result{Kind: KindFatal, StatusCode: apierr.StatusCode, Message: apierr.Message}, false
		}
	}

	// No HTTP response at all: transport-level failure, retryable.
	return Result{Kind: KindNetworkError, Message: anthropic.Truncate(err.Error())}, true
}
