package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/internal/resilience"
	"github.com/digpatho/growth-api/internal/store"
	"github.com/digpatho/growth-api/pkg/apollo"
)

// MatchEmails runs the Apollo people-match batch. A throttled lookup stops
// the batch immediately: Apollo throttles per account, so the remaining
// items would only burn quota.
func (s *Service) MatchEmails(ctx context.Context, leadIDs []string) (*BatchSummary, error) {
	if s.apollo == nil {
		return nil, ErrApolloNotConfigured
	}

	pending, already, err := s.loadBatch(ctx, leadIDs, s.cfg.MatchCap)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{
		Total:           len(pending),
		AlreadyHadEmail: already,
	}

	for i, lead := range pending {
		detail, throttled := s.matchOne(ctx, lead)
		summary.add(detail)
		if throttled {
			break
		}
		if i < len(pending)-1 {
			s.sleep(ctx, s.cfg.MatchDelay)
		}
	}

	return summary, nil
}

func (s *Service) matchOne(ctx context.Context, lead model.Lead) (ItemDetail, bool) {
	detail := ItemDetail{LeadID: lead.ID, Name: lead.FullName}

	first, last := lead.NameParts()
	if first == "" {
		detail.Status = StatusNotFound
		detail.Notes = "No name available"
		return detail, false
	}

	req := apollo.MatchRequest{
		FirstName:            first,
		LastName:             last,
		OrganizationName:     lead.Company,
		LinkedInURL:          lead.LinkedInURL,
		RevealPersonalEmails: true,
	}

	// Transport-level failures are retried; a 429 is returned to us after
	// retries so the batch can stop.
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.ShouldRetry = func(err error) bool {
		return resilience.IsTransient(err) && !resilience.IsRateLimited(err)
	}
	retryCfg.OnRetry = resilience.RetryLogger("apollo", "people_match")

	person, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*apollo.Person, error) {
		return s.apollo.Match(ctx, req)
	})
	if err != nil {
		if resilience.IsRateLimited(err) {
			detail.Status = StatusRateLimited
			return detail, true
		}
		zap.L().Warn("apollo match failed",
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
		detail.Status = StatusNotFound
		detail.Notes = err.Error()
		return detail, false
	}

	if person == nil || person.BestEmail() == "" {
		detail.Status = StatusNotFound
		return detail, false
	}

	email := person.BestEmail()
	err = s.store.UpdateLeadEmail(ctx, lead.ID, store.EmailUpdate{
		Email:  email,
		Method: model.DiscoveryMethodApollo,
	})
	if err != nil {
		detail.Status = StatusError
		detail.Error = err.Error()
		return detail, false
	}

	detail.Status = StatusFound
	detail.Email = email
	return detail, false
}
