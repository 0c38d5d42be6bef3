package server

import (
	"net/http"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

type proxyRequest struct {
	SystemPrompt string   `json:"systemPrompt"`
	UserMessage  string   `json:"userMessage"`
	Model        string   `json:"model"`
	MaxTokens    int64    `json:"maxTokens"`
	Temperature  *float64 `json:"temperature"`
}

type proxyUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

type proxyResponse struct {
	Content    string     `json:"content"`
	Usage      proxyUsage `json:"usage"`
	Model      string     `json:"model"`
	StopReason string     `json:"stopReason"`
}

// handleProxy is the generic server-side AI call: it keeps the credential
// out of the browser and applies the shared retry policy.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Anthropic.Key == "" {
		writeError(w, http.StatusBadRequest, "ANTHROPIC_API_KEY not configured")
		return
	}

	var req proxyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserMessage == "" {
		writeError(w, http.StatusBadRequest, "userMessage is required")
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.Proxy.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.cfg.Proxy.DefaultMaxTokens
	}
	temp := s.cfg.Proxy.DefaultTemp
	if req.Temperature != nil {
		temp = *req.Temperature
	}

	res := s.caller.Call(r.Context(), anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: req.UserMessage}},
		Temperature: &temp,
	})

	switch res.Kind {
	case aicall.KindSuccess:
		writeJSON(w, http.StatusOK, proxyResponse{
			Content: res.Response.FirstText(),
			Usage: proxyUsage{
				InputTokens:  res.Response.Usage.InputTokens,
				OutputTokens: res.Response.Usage.OutputTokens,
			},
			Model:      res.Response.Model,
			StopReason: res.Response.StopReason,
		})
	case aicall.KindNoCredits:
		writeJSON(w, http.StatusPaymentRequired, throttleBody{
			Error:    "no_credits",
			Message:  msgNoCredits,
			APIError: res.Message,
		})
	case aicall.KindRateLimited, aicall.KindOverloaded, aicall.KindNetworkError:
		writeJSON(w, http.StatusTooManyRequests, throttleBody{
			Error:    "rate_limit",
			Message:  msgRateLimit,
			APIError: res.Message,
		})
	default:
		writeError(w, http.StatusInternalServerError, res.Message)
	}
}
