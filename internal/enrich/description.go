package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/internal/extract"
	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/internal/prompt"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

// EnrichmentResult is the outcome of a description enrichment run. A nil
// Description with Err == nil means the model found nothing usable; the
// caller reports that as a soft failure, not an HTTP error.
type EnrichmentResult struct {
	Description   string   `json:"description,omitempty"`
	Sources       []string `json:"sources"`
	Confidence    string   `json:"confidence,omitempty"`
	SectionsFound []string `json:"sections_found"`
	SearchCount   int64    `json:"search_count"`
	Notes         string   `json:"notes,omitempty"`
	Found         bool     `json:"-"`
}

// EnrichDescription researches one lead and writes the generated description
// into the lead's extra_data, preserving the previous description under
// description_original.
func (s *Service) EnrichDescription(ctx context.Context, leadID string) (*EnrichmentResult, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	promptText := prompt.DescriptionEnrichment(*lead)
	if promptText == "" {
		return &EnrichmentResult{Notes: "No name available"}, nil
	}

	res := s.ai.Call(ctx, anthropic.MessageRequest{
		Model:     s.cfg.EnrichModel,
		MaxTokens: s.cfg.EnrichMaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: promptText}},
		WebSearch: &anthropic.WebSearchTool{MaxUses: s.cfg.EnrichMaxUses},
	})

	switch res.Kind {
	case aicall.KindSuccess:
		// handled below
	case aicall.KindNoCredits:
		return nil, &NoCreditsError{APIError: res.Message}
	case aicall.KindRateLimited, aicall.KindOverloaded, aicall.KindNetworkError:
		return nil, &RateLimitError{APIError: res.Message}
	default:
		return nil, eris.Errorf("enrich: provider call failed: %s", res.Message)
	}

	result := extract.Description(res.Response)
	if result.Status != extract.StatusFound {
		return &EnrichmentResult{
			SearchCount: result.SearchCount,
			Notes:       orDefault(result.Notes, "No se encontró información adicional para este lead."),
		}, nil
	}

	confidence := result.Confidence.OrDefault(model.ConfidenceMedium)

	// Merge into extra_data instead of replacing it: the map carries other
	// pipeline state we must not clobber.
	extra := make(map[string]any, len(lead.ExtraData)+5)
	for k, v := range lead.ExtraData {
		extra[k] = v
	}
	var original any
	if prev := lead.Description(); prev != "" {
		original = prev
	}
	extra["description"] = result.Description
	extra["description_sources"] = result.Sources
	extra["description_enriched_at"] = s.now().UTC().Format(time.RFC3339)
	extra["description_confidence"] = string(confidence)
	extra["description_original"] = original

	if err := s.store.UpdateLeadExtraData(ctx, leadID, extra); err != nil {
		return nil, err
	}

	zap.L().Info("lead description enriched",
		zap.String("lead_id", leadID),
		zap.String("confidence", string(confidence)),
		zap.Int64("search_count", result.SearchCount),
		zap.Bool("fallback", result.FromFallback),
	)

	return &EnrichmentResult{
		Description:   result.Description,
		Sources:       emptyIfNil(result.Sources),
		Confidence:    string(confidence),
		SectionsFound: emptyIfNil(result.SectionsFound),
		SearchCount:   result.SearchCount,
		Notes:         result.Notes,
		Found:         true,
	}, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
