// Package anthropic wraps the official Anthropic SDK behind request and
// response types owned by this repository, so callers and tests never touch
// SDK types directly.
package anthropic

import "context"

// Client defines the Anthropic Messages API operations used by the growth API.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Temperature *float64

	// WebSearch enables the server-side web_search tool when non-nil.
	WebSearch *WebSearchTool
}

// WebSearchTool configures the bounded-use web_search server tool.
type WebSearchTool struct {
	MaxUses int64
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// UserText returns the content of the first user message, or "".
func (r MessageRequest) UserText() string {
	for _, m := range r.Messages {
		if m.Role == "user" || m.Role == "" {
			return m.Content
		}
	}
	return ""
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      TokenUsage
}

// ContentBlock represents a block of content in a response. Non-text blocks
// (tool use, search results) carry only their Type.
type ContentBlock struct {
	Type string
	Text string
}

// FirstText returns the text of the first text content block, or "".
func (r *MessageResponse) FirstText() string {
	for _, b := range r.Content {
		if b.Type == "text" {
			return b.Text
		}
	}
	return ""
}

// TokenUsage tracks token consumption and server tool use for one call.
type TokenUsage struct {
	InputTokens       int64
	OutputTokens      int64
	WebSearchRequests int64
}
