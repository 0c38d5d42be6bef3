package server

import (
	"errors"
	"net/http"

	"github.com/digpatho/growth-api/internal/enrich"
)

type leadBatchRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

type leadRequest struct {
	LeadID string `json:"lead_id"`
}

// throttleBody is the shared shape of 402/429 answers: a machine code, the
// Spanish user-facing message, and the raw provider error for debugging.
type throttleBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	APIError string `json:"apiError,omitempty"`
}

// handleEmailDiscovery runs the AI web-search email discovery batch.
func (s *Server) handleEmailDiscovery(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Anthropic.Key == "" {
		writeError(w, http.StatusBadRequest, "ANTHROPIC_API_KEY not configured")
		return
	}

	var req leadBatchRequest
	if err := decodeBody(r, &req); err != nil || len(req.LeadIDs) == 0 {
		writeError(w, http.StatusBadRequest, "lead_ids array is required")
		return
	}
	if bad, ok := validLeadIDs(req.LeadIDs); !ok {
		writeError(w, http.StatusBadRequest, "invalid lead id: "+bad)
		return
	}

	summary, err := s.enrich.DiscoverEmails(r.Context(), req.LeadIDs)
	if err != nil {
		if errors.Is(err, enrich.ErrNoLeads) {
			writeError(w, http.StatusNotFound, "no leads found for the given ids")
			return
		}
		writeInternal(w, err)
		return
	}

	// A batch that produced nothing before the breaker tripped is a pure
	// rate-limit failure; one with partial results still answers 200 so the
	// frontend can show what did complete.
	if summary.BreakerTripped && summary.Found == 0 && summary.NotFound == 0 && summary.AlreadyHadEmail == 0 {
		writeJSON(w, http.StatusTooManyRequests, throttleBody{
			Error:   "rate_limit",
			Message: msgRateLimit,
		})
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: summary})
}

// handleEnrichDescription researches one lead and stores the generated
// description.
func (s *Server) handleEnrichDescription(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Anthropic.Key == "" {
		writeError(w, http.StatusBadRequest, "ANTHROPIC_API_KEY not configured")
		return
	}

	var req leadRequest
	if err := decodeBody(r, &req); err != nil || req.LeadID == "" {
		writeError(w, http.StatusBadRequest, "lead_id is required")
		return
	}
	if _, ok := validLeadIDs([]string{req.LeadID}); !ok {
		writeError(w, http.StatusBadRequest, "invalid lead id: "+req.LeadID)
		return
	}

	result, err := s.enrich.EnrichDescription(r.Context(), req.LeadID)
	if err != nil {
		var noCredits *enrich.NoCreditsError
		var rateLimit *enrich.RateLimitError
		switch {
		case errors.Is(err, enrich.ErrLeadNotFound):
			writeError(w, http.StatusNotFound, "lead not found")
		case errors.As(err, &noCredits):
			writeJSON(w, http.StatusPaymentRequired, throttleBody{
				Error:    "no_credits",
				Message:  msgNoCredits,
				APIError: noCredits.APIError,
			})
		case errors.As(err, &rateLimit):
			writeJSON(w, http.StatusTooManyRequests, throttleBody{
				Error:    "rate_limit",
				Message:  msgRateLimit,
				APIError: rateLimit.APIError,
			})
		default:
			writeInternal(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, enrichResponse{
		Success: result.Found,
		Result:  result,
	})
}

// handleEmailMatch runs the Apollo people-match batch.
func (s *Server) handleEmailMatch(w http.ResponseWriter, r *http.Request) {
	var req leadBatchRequest
	if err := decodeBody(r, &req); err != nil || len(req.LeadIDs) == 0 {
		writeError(w, http.StatusBadRequest, "lead_ids array is required")
		return
	}
	if bad, ok := validLeadIDs(req.LeadIDs); !ok {
		writeError(w, http.StatusBadRequest, "invalid lead id: "+bad)
		return
	}

	summary, err := s.enrich.MatchEmails(r.Context(), req.LeadIDs)
	if err != nil {
		switch {
		case errors.Is(err, enrich.ErrApolloNotConfigured):
			writeError(w, http.StatusBadRequest, "APOLLO_API_KEY not configured")
		case errors.Is(err, enrich.ErrNoLeads):
			writeError(w, http.StatusNotFound, "no leads found for the given ids")
		default:
			writeInternal(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: summary})
}

type batchResponse struct {
	Success bool                 `json:"success"`
	Results *enrich.BatchSummary `json:"results"`
}

type enrichResponse struct {
	Success bool                     `json:"success"`
	Result  *enrich.EnrichmentResult `json:"result"`
}
