package aicall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digpatho/growth-api/pkg/anthropic"
)

// fakeClient returns scripted outcomes in order, repeating the last one.
type fakeClient struct {
	outcomes []outcome
	calls    int
}

type outcome struct {
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeClient) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	i := f.calls
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	f.calls++
	o := f.outcomes[i]
	return o.resp, o.err
}

func okResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func userReq() anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
		Messages:  []anthropic.Message{{Role: "user", Content: "hello"}},
	}
}

// newTestCaller records sleep durations instead of waiting.
func newTestCaller(client anthropic.Client, delays *[]time.Duration) *Caller {
	return New(client, WithSleep(func(_ context.Context, d time.Duration) {
		*delays = append(*delays, d)
	}))
}

func TestCallSuccessFirstAttempt(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{{resp: okResponse("hi")}}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, "hi", res.Response.FirstText())
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, delays)
}

func TestCallRetriesThenSucceeds(t *testing.T) {
	throttle := &anthropic.APIError{StatusCode: 429, ErrType: "rate_limit_error", Message: "slow down"}
	client := &fakeClient{outcomes: []outcome{
		{err: throttle}, {err: throttle}, {err: throttle}, {resp: okResponse("finally")},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, 4, client.calls)
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}, delays)
}

func TestCallExhaustsRetries(t *testing.T) {
	throttle := &anthropic.APIError{StatusCode: 429, Message: "slow down"}
	client := &fakeClient{outcomes: []outcome{{err: throttle}}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	assert.Equal(t, KindRateLimited, res.Kind)
	assert.Equal(t, 429, res.StatusCode)
	assert.True(t, res.IsThrottled())
	assert.Equal(t, 4, client.calls)
	assert.Len(t, delays, 3)
}

func TestCallOverloadedRetries(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 529, ErrType: "overloaded_error", Message: "overloaded"}},
		{resp: okResponse("ok")},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, 2, client.calls)
}

func TestCallHonorsRetryAfter(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 429, RetryAfter: 7 * time.Second}},
		{resp: okResponse("ok")},
	}}
	var delays []time.Duration

	newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, []time.Duration{7 * time.Second}, delays)
}

func TestCallCapsRetryAfter(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 429, RetryAfter: 120 * time.Second}},
		{resp: okResponse("ok")},
	}}
	var delays []time.Duration

	newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, []time.Duration{maxRetryAfter}, delays)
}

func TestCallNoCreditsNotRetried(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 400, ErrType: "invalid_request_error",
			Message: "Your credit balance is too low to access the Anthropic API"}},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	assert.Equal(t, KindNoCredits, res.Kind)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, delays)
}

func TestCallBillingErrorType(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 402, ErrType: "billing_error", Message: "payment required"}},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())
	assert.Equal(t, KindNoCredits, res.Kind)
}

func TestCallFatalNotRetried(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: &anthropic.APIError{StatusCode: 400, ErrType: "invalid_request_error", Message: "bad model"}},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	assert.Equal(t, KindFatal, res.Kind)
	assert.Equal(t, 1, client.calls)
}

func TestCallTransportErrorRetried(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{
		{err: errors.New("connection reset by peer")},
		{resp: okResponse("ok")},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	require.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, delays)
}

func TestCallNetworkFailureExhaustedIsThrottled(t *testing.T) {
	// A connection that never produces an HTTP response must surface as a
	// transient outcome the adapters map to 429, not as a hard failure.
	client := &fakeClient{outcomes: []outcome{
		{err: errors.New("dial tcp: i/o timeout")},
	}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), userReq())

	assert.Equal(t, KindNetworkError, res.Kind)
	assert.True(t, res.IsThrottled())
	assert.Equal(t, 0, res.StatusCode)
	assert.Equal(t, 4, client.calls)
	assert.Len(t, delays, 3)
}

func TestCallEmptyUserMessage(t *testing.T) {
	client := &fakeClient{outcomes: []outcome{{resp: okResponse("never")}}}
	var delays []time.Duration

	res := newTestCaller(client, &delays).Call(context.Background(), anthropic.MessageRequest{
		Messages: []anthropic.Message{{Role: "user", Content: "   "}},
	})

	assert.Equal(t, KindFatal, res.Kind)
	assert.Equal(t, 0, client.calls)
}

func TestCallCustomSchedule(t *testing.T) {
	throttle := &anthropic.APIError{StatusCode: 429}
	client := &fakeClient{outcomes: []outcome{{err: throttle}}}
	var delays []time.Duration

	c := New(client,
		WithSchedule([]time.Duration{time.Second}),
		WithSleep(func(_ context.Context, d time.Duration) { delays = append(delays, d) }),
	)
	res := c.Call(context.Background(), userReq())

	assert.Equal(t, KindRateLimited, res.Kind)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestCallStopsOnCanceledContext(t *testing.T) {
	throttle := &anthropic.APIError{StatusCode: 429}
	client := &fakeClient{outcomes: []outcome{{err: throttle}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(client, WithSleep(func(_ context.Context, _ time.Duration) {})).Call(ctx, userReq())

	assert.Equal(t, KindRateLimited, res.Kind)
	assert.Equal(t, 1, client.calls)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "overloaded", KindOverloaded.String())
	assert.Equal(t, "network_error", KindNetworkError.String())
	assert.Equal(t, "no_credits", KindNoCredits.String())
	assert.Equal(t, "fatal", KindFatal.String())
}
