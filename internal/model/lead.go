// Package model defines the domain entities shared across the growth API.
package model

import (
	"strings"
	"time"
)

// Confidence is the qualitative trust level attached to a discovered value.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the three known levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// OrDefault returns c, or fallback when c is empty or unknown.
func (c Confidence) OrDefault(fallback Confidence) Confidence {
	if c.Valid() {
		return c
	}
	return fallback
}

// DiscoveryMethod tags how a lead's email address was obtained.
const (
	DiscoveryMethodAIWebSearch = "ai_web_search"
	DiscoveryMethodApollo      = "apollo"
)

// Lead is a growth lead record as stored in growth_leads. All searchable
// attributes are optional; an empty string means the value is unknown.
type Lead struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Company     string `json:"company,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Geo         string `json:"geo,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	Email                string     `json:"email,omitempty"`
	EmailDiscoveryMethod string     `json:"email_discovery_method,omitempty"`
	EmailConfidence      Confidence `json:"email_confidence,omitempty"`
	EmailSourceURL       string     `json:"email_source_url,omitempty"`

	// ExtraData is an open-ended JSONB map. The enrichment flow stores the
	// generated description and its metadata here.
	ExtraData map[string]any `json:"extra_data,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasEmail reports whether the lead already carries an email address.
func (l Lead) HasEmail() bool {
	return strings.TrimSpace(l.Email) != ""
}

// Name returns the lead's trimmed full name, or "" when no usable name exists.
func (l Lead) Name() string {
	return strings.TrimSpace(l.FullName)
}

// NameParts splits the lead into first and last name, preferring the explicit
// first_name/last_name columns and falling back to splitting full_name.
func (l Lead) NameParts() (first, last string) {
	first = strings.TrimSpace(l.FirstName)
	last = strings.TrimSpace(l.LastName)

	if first != "" {
		if last == "" {
			last = remainderOf(l.Name(), first)
		}
		return first, last
	}

	fields := strings.Fields(l.Name())
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// Description returns the current description stored in extra_data, if any.
func (l Lead) Description() string {
	if l.ExtraData == nil {
		return ""
	}
	desc, _ := l.ExtraData["description"].(string)
	return desc
}

func remainderOf(full, first string) string {
	fields := strings.Fields(full)
	if len(fields) < 2 || !strings.EqualFold(fields[0], first) {
		return ""
	}
	return strings.Join(fields[1:], " ")
}
