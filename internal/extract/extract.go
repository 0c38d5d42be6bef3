// Package extract turns raw model responses into structured enrichment
// results. Parsing is a pure function over the response: strict JSON first,
// then a permissive salvage pass, then rejection.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/digpatho/growth-api/internal/model"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

// Status discriminates the extraction outcome.
type Status int

const (
	// StatusFound means a usable value was extracted.
	StatusFound Status = iota
	// StatusNotFound means the model answered but declared nothing found.
	StatusNotFound
	// StatusParseFailed means no usable value survived the fallback chain.
	StatusParseFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	default:
		return "parse_failed"
	}
}

// minFallbackDescription is the smallest raw-text answer accepted as a
// description when the model did not return parseable JSON.
const minFallbackDescription = 100

var (
	// jsonObjectRe greedily matches from the first "{" to the last "}" so a
	// complete object survives even when the model wraps it in prose.
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	citeRe = regexp.MustCompile(`(?i)</?cite[^>]*>`)
)

// placeholderDomains are never accepted by the regex salvage path; models
// emit them as illustrative addresses, not discoveries.
var placeholderDomains = []string{"example.com", "email.com"}

// EmailResult is the outcome of parsing an email-discovery response.
type EmailResult struct {
	Status            Status
	Email             string
	AlternativeEmails []string
	SourceURL         string
	SourceDescription string
	Confidence        model.Confidence
	Notes             string
	SearchCount       int64
	// FromFallback marks values salvaged from unstructured text.
	FromFallback bool
}

// DescriptionResult is the outcome of parsing an enrichment response.
type DescriptionResult struct {
	Status        Status
	Description   string
	Sources       []string
	Confidence    model.Confidence
	SectionsFound []string
	Notes         string
	SearchCount   int64
	FromFallback  bool
}

type emailPayload struct {
	Found             bool     `json:"found"`
	Email             string   `json:"email"`
	AlternativeEmails []string `json:"alternative_emails"`
	SourceURL         string   `json:"source_url"`
	SourceDescription string   `json:"source_description"`
	Confidence        string   `json:"confidence"`
	Notes             string   `json:"notes"`
}

type descriptionPayload struct {
	Description   *string  `json:"description"`
	Sources       []string `json:"sources"`
	Confidence    string   `json:"confidence"`
	SectionsFound []string `json:"sections_found"`
	Notes         string   `json:"notes"`
}

// Email parses an email-discovery response. The declared JSON value wins over
// any email-looking substrings elsewhere in the text; the regex pass runs
// only when no JSON object parses.
func Email(resp *anthropic.MessageResponse) EmailResult {
	text, ok := lastText(resp)
	if !ok {
		return EmailResult{Status: StatusParseFailed, Notes: "no text blocks in response"}
	}
	searches := resp.Usage.WebSearchRequests

	if raw, found := jsonObject(text); found {
		var payload emailPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			if !payload.Found || strings.TrimSpace(payload.Email) == "" {
				return EmailResult{
					Status:      StatusNotFound,
					Notes:       StripCites(payload.Notes),
					SearchCount: searches,
				}
			}
			return EmailResult{
				Status:            StatusFound,
				Email:             strings.TrimSpace(payload.Email),
				AlternativeEmails: payload.AlternativeEmails,
				SourceURL:         payload.SourceURL,
				SourceDescription: StripCites(payload.SourceDescription),
				Confidence:        model.Confidence(payload.Confidence).OrDefault(model.ConfidenceMedium),
				Notes:             StripCites(payload.Notes),
				SearchCount:       searches,
			}
		}
	}

	// Salvage pass: any email-looking substrings in the raw text, minus
	// placeholder domains.
	emails := filterPlaceholders(emailRe.FindAllString(text, -1))
	if len(emails) > 0 {
		return EmailResult{
			Status:            StatusFound,
			Email:             emails[0],
			AlternativeEmails: emails[1:],
			Confidence:        model.ConfidenceLow,
			Notes:             "Extracted via regex fallback from unstructured response",
			SearchCount:       searches,
			FromFallback:      true,
		}
	}

	return EmailResult{Status: StatusParseFailed, Notes: "no email found in response", SearchCount: searches}
}

// Description parses an enrichment response. A parse failure falls back to
// accepting the raw text as the description when it is long enough to be a
// real answer.
func Description(resp *anthropic.MessageResponse) DescriptionResult {
	text, ok := lastText(resp)
	if !ok {
		return DescriptionResult{Status: StatusParseFailed, Notes: "no text blocks in response"}
	}
	searches := resp.Usage.WebSearchRequests

	if raw, found := jsonObject(text); found {
		var payload descriptionPayload
		if err := json.Unmarshal([]byte(raw), &payload); err == nil {
			if payload.Description == nil || strings.TrimSpace(*payload.Description) == "" {
				notes := payload.Notes
				if notes == "" {
					notes = "No additional information found"
				}
				return DescriptionResult{
					Status:      StatusNotFound,
					Notes:       StripCites(notes),
					SearchCount: searches,
				}
			}
			return DescriptionResult{
				Status:        StatusFound,
				Description:   StripCites(*payload.Description),
				Sources:       payload.Sources,
				Confidence:    model.Confidence(payload.Confidence).OrDefault(model.ConfidenceMedium),
				SectionsFound: payload.SectionsFound,
				Notes:         StripCites(payload.Notes),
				SearchCount:   searches,
			}
		}
	}

	clean := StripCites(strings.TrimSpace(text))
	if len(clean) > minFallbackDescription {
		return DescriptionResult{
			Status:       StatusFound,
			Description:  clean,
			Confidence:   model.ConfidenceLow,
			Notes:        "Extracted from unstructured response",
			SearchCount:  searches,
			FromFallback: true,
		}
	}

	return DescriptionResult{Status: StatusParseFailed, Notes: "no useful response", SearchCount: searches}
}

// lastText returns the last text content block. Models often think out loud
// across several text blocks; the final one holds the answer.
func lastText(resp *anthropic.MessageResponse) (string, bool) {
	var text string
	var found bool
	for _, b := range resp.Content {
		if b.Type == "text" {
			text = b.Text
			found = true
		}
	}
	return text, found
}

func jsonObject(text string) (string, bool) {
	match := jsonObjectRe.FindString(text)
	return match, match != ""
}

// StripCites removes <cite ...>...</cite> markup that the web_search tool
// embeds in free text.
func StripCites(s string) string {
	if s == "" {
		return s
	}
	return citeRe.ReplaceAllString(s, "")
}

func filterPlaceholders(emails []string) []string {
	var out []string
	for _, e := range emails {
		placeholder := false
		for _, d := range placeholderDomains {
			if strings.HasSuffix(strings.ToLower(e), d) {
				placeholder = true
				break
			}
		}
		if !placeholder {
			out = append(out, e)
		}
	}
	return out
}
