package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/internal/extract"
	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/internal/prompt"
	"github.com/digpatho/growth-api/internal/store"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

// DiscoverEmails runs the AI web-search email discovery batch. Ids beyond
// the discovery cap are silently dropped; leads that already have an email
// are skipped and tallied. The batch aborts early after BreakerThreshold
// consecutive throttled items.
func (s *Service) DiscoverEmails(ctx context.Context, leadIDs []string) (*BatchSummary, error) {
	pending, already, err := s.loadBatch(ctx, leadIDs, s.cfg.DiscoveryCap)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		Total:           len(pending),
		AlreadyHadEmail: already,
	}

	consecutiveThrottles := 0
	for i, lead := range pending {
		detail := s.discoverOne(ctx, lead)
		summary.add(detail)

		if detail.Status == StatusRateLimited {
			consecutiveThrottles++
			if consecutiveThrottles >= s.cfg.BreakerThreshold {
				summary.BreakerTripped = true
				zap.L().Warn("discovery batch aborted: provider throttling",
					zap.Int("consecutive", consecutiveThrottles),
					zap.Int("processed", i+1),
					zap.Int("remaining", len(pending)-i-1),
				)
				break
			}
		} else {
			consecutiveThrottles = 0
		}

		if i < len(pending)-1 {
			s.sleep(ctx, s.cfg.DiscoveryDelay)
		}
	}

	return summary, nil
}

// discoverOne processes a single lead: prompt, call, extract, persist.
func (s *Service) discoverOne(ctx context.Context, lead model.Lead) ItemDetail {
	detail := ItemDetail{LeadID: lead.ID, Name: lead.FullName}

	promptText := prompt.EmailDiscovery(lead)
	if promptText == "" {
		detail.Status = StatusNotFound
		detail.Notes = "No name available"
		return detail
	}

	res := s.ai.Call(ctx, anthropic.MessageRequest{
		Model:     s.cfg.DiscoveryModel,
		MaxTokens: s.cfg.DiscoveryMaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: promptText}},
		WebSearch: &anthropic.WebSearchTool{MaxUses: s.cfg.DiscoveryMaxUses},
	})

	switch res.Kind {
	case aicall.KindSuccess:
		return s.applyEmailResult(ctx, lead, extract.Email(res.Response))
	case aicall.KindRateLimited, aicall.KindOverloaded, aicall.KindNetworkError:
		detail.Status = StatusRateLimited
		detail.Error = res.Message
		return detail
	default:
		detail.Status = StatusError
		detail.Error = res.Message
		return detail
	}
}

// applyEmailResult persists a found email and builds the item detail. Store
// failures become per-item errors; they never abort the batch.
func (s *Service) applyEmailResult(ctx context.Context, lead model.Lead, result extract.EmailResult) ItemDetail {
	detail := ItemDetail{LeadID: lead.ID, Name: lead.FullName}

	if result.Status != extract.StatusFound {
		detail.Status = StatusNotFound
		detail.Notes = result.Notes
		return detail
	}

	confidence := result.Confidence.OrDefault(model.ConfidenceMedium)
	err := s.store.UpdateLeadEmail(ctx, lead.ID, store.EmailUpdate{
		Email:      result.Email,
		Method:     model.DiscoveryMethodAIWebSearch,
		Confidence: confidence,
		SourceURL:  result.SourceURL,
	})
	if err != nil {
		zap.L().Error("discovery: lead update failed",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
		detail.Status = StatusError
		detail.Error = err.Error()
		return detail
	}

	detail.Status = StatusFound
	detail.Email = result.Email
	detail.Confidence = string(confidence)
	detail.SourceURL = result.SourceURL
	detail.SourceDescription = result.SourceDescription
	detail.AlternativeEmails = result.AlternativeEmails
	detail.Notes = result.Notes
	return detail
}
