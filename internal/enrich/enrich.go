// Package enrich orchestrates the lead-enrichment flows: AI web-search email
// discovery, AI description enrichment, and Apollo people-match email lookup.
// Batches run strictly sequentially — item N+1 never starts before item N's
// full attempt (retries included) completes — because the provider's
// account-level rate limits make concurrent calls counterproductive and the
// circuit breaker needs an ordered view of consecutive failures.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/internal/store"
	"github.com/digpatho/growth-api/pkg/apollo"
)

// Config carries the tuning knobs of the three flows. The discovery and
// match flows keep separate caps and delays on purpose: each AI web-search
// call is far more expensive than an Apollo lookup.
type Config struct {
	DiscoveryModel     string
	DiscoveryMaxTokens int64
	DiscoveryMaxUses   int64
	DiscoveryCap       int
	DiscoveryDelay     time.Duration

	EnrichModel     string
	EnrichMaxTokens int64
	EnrichMaxUses   int64

	MatchCap   int
	MatchDelay time.Duration

	// BreakerThreshold is the number of consecutive throttled items that
	// aborts a discovery batch early.
	BreakerThreshold int
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		DiscoveryModel:     "claude-sonnet-4-20250514",
		DiscoveryMaxTokens: 1024,
		DiscoveryMaxUses:   5,
		DiscoveryCap:       5,
		DiscoveryDelay:     2 * time.Second,
		EnrichModel:        "claude-sonnet-4-5-20250929",
		EnrichMaxTokens:    4096,
		EnrichMaxUses:      10,
		MatchCap:           25,
		MatchDelay:         300 * time.Millisecond,
		BreakerThreshold:   3,
	}
}

// SleepFunc suspends between batch items. Injected in tests.
type SleepFunc func(ctx context.Context, d time.Duration)

// Service runs the enrichment flows against one store and one set of
// provider clients. One Service is shared across requests; each run owns its
// own tally, so concurrent requests never share mutable state.
type Service struct {
	store  store.LeadStore
	ai     *aicall.Caller
	apollo apollo.Client
	cfg    Config
	sleep  SleepFunc
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSleep overrides inter-item suspension. Tests record delays instead of
// waiting.
func WithSleep(sleep SleepFunc) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithNow overrides the clock used for enrichment timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the enrichment flows. apolloClient may be nil when the
// Apollo key is not configured; MatchEmails then fails fast.
func NewService(leadStore store.LeadStore, ai *aicall.Caller, apolloClient apollo.Client, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:  leadStore,
		ai:     ai,
		apollo: apolloClient,
		cfg:    cfg,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ErrNoLeads is returned when none of the requested ids exist.
var ErrNoLeads = eris.New("enrich: no leads found")

// ErrApolloNotConfigured is returned when MatchEmails runs without an Apollo key.
var ErrApolloNotConfigured = eris.New("enrich: apollo client not configured")

// ErrLeadNotFound is returned when a single requested lead does not exist.
var ErrLeadNotFound = eris.New("enrich: lead not found")

// RateLimitError surfaces provider throttling to the endpoint adapter.
type RateLimitError struct {
	APIError string
}

func (e *RateLimitError) Error() string {
	return "enrich: provider rate limit"
}

// NoCreditsError surfaces an exhausted billing balance.
type NoCreditsError struct {
	APIError string
}

func (e *NoCreditsError) Error() string {
	return "enrich: no billing credits"
}

// Item statuses recorded in batch details.
const (
	StatusFound       = "found"
	StatusNotFound    = "not_found"
	StatusError       = "error"
	StatusRateLimited = "rate_limited"
)

// ItemDetail is the per-lead record of a batch run.
type ItemDetail struct {
	LeadID            string   `json:"lead_id"`
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	Email             string   `json:"email,omitempty"`
	Confidence        string   `json:"confidence,omitempty"`
	SourceURL         string   `json:"source_url,omitempty"`
	SourceDescription string   `json:"source_description,omitempty"`
	AlternativeEmails []string `json:"alternative_emails,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// BatchSummary aggregates one batch run. It lives for the duration of a
// single request and is never persisted.
type BatchSummary struct {
	Total           int          `json:"total"`
	Found           int          `json:"found"`
	NotFound        int          `json:"not_found"`
	Errors          int          `json:"errors"`
	AlreadyHadEmail int          `json:"already_had_email"`
	Details         []ItemDetail `json:"details"`

	// BreakerTripped marks a batch aborted by consecutive throttling.
	BreakerTripped bool `json:"-"`
}

func (s *BatchSummary) add(d ItemDetail) {
	switch d.Status {
	case StatusFound:
		s.Found++
	case StatusNotFound:
		s.NotFound++
	default:
		s.Errors++
	}
	s.Details = append(s.Details, d)
}

// loadBatch fetches and caps the target leads, splitting off the ones that
// already carry an email.
func (s *Service) loadBatch(ctx context.Context, leadIDs []string, limit int) (pending []model.Lead, already int, err error) {
	if len(leadIDs) > limit {
		leadIDs = leadIDs[:limit]
	}

	leads, err := s.store.GetLeadsByIDs(ctx, leadIDs)
	if err != nil {
		return nil, 0, err
	}
	if len(leads) == 0 {
		return nil, 0, ErrNoLeads
	}

	for _, lead := range leads {
		if lead.HasEmail() {
			already++
			continue
		}
		pending = append(pending, lead)
	}
	return pending, already, nil
}
