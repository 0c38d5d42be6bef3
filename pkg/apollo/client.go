// Package apollo implements the Apollo.io People Match API used by the
// lower-cost email enrichment flow.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/digpatho/growth-api/internal/resilience"
)

const defaultBaseURL = "https://api.apollo.io/api/v1"

// Client performs people-match lookups against Apollo.
type Client interface {
	Match(ctx context.Context, req MatchRequest) (*Person, error)
}

// MatchRequest identifies the person to look up. FirstName is required.
type MatchRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name,omitempty"`
	OrganizationName     string `json:"organization_name,omitempty"`
	LinkedInURL          string `json:"linkedin_url,omitempty"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
}

// Person is Apollo's best-match record. Nil when no match was found.
type Person struct {
	Email          string       `json:"email"`
	PersonalEmails []string     `json:"personal_emails"`
	Title          string       `json:"title"`
	City           string       `json:"city"`
	Country        string       `json:"country"`
	LinkedInURL    string       `json:"linkedin_url"`
	Organization   Organization `json:"organization"`
}

// Organization is the matched person's employer.
type Organization struct {
	Name string `json:"name"`
}

// BestEmail returns the corporate email, falling back to the first personal
// one. Empty when Apollo matched the person but revealed no address.
func (p *Person) BestEmail() string {
	if p.Email != "" {
		return p.Email
	}
	if len(p.PersonalEmails) > 0 {
		return p.PersonalEmails[0]
	}
	return ""
}

type matchResponse struct {
	Person *Person `json:"person"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit paces outgoing requests at r per second.
func WithRateLimit(r float64) Option {
	return func(c *httpClient) {
		if r > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(r), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Apollo API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Match looks up a person. A 429 answer is returned as a TransientError so
// callers can distinguish provider throttling from a hard failure; a clean
// "no match" answer returns (nil, nil).
func (c *httpClient) Match(ctx context.Context, req MatchRequest) (*Person, error) {
	if req.FirstName == "" {
		return nil, eris.New("apollo: first name is required")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "apollo: rate limiter")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/people/match", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "apollo: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		apiErr := eris.Errorf("apollo: API %d: %s", resp.StatusCode, msg)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var result matchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "apollo: decode response")
	}

	return result.Person, nil
}
