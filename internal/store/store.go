// Package store persists growth leads. The store is the sole owner of Lead
// records; the enrichment pipeline only reads by id set and updates single
// rows by id, last writer wins.
package store

import (
	"context"

	"github.com/digpatho/growth-api/internal/model"
)

// EmailUpdate is a targeted write of a discovered email and its provenance.
// Empty Confidence or SourceURL leave the respective columns untouched.
type EmailUpdate struct {
	Email      string
	Method     string
	Confidence model.Confidence
	SourceURL  string
}

// LeadStore defines the persistence operations used by the enrichment flows.
type LeadStore interface {
	// GetLeadsByIDs returns the leads matching ids, in the order ids were
	// given. Unknown ids are silently absent from the result.
	GetLeadsByIDs(ctx context.Context, ids []string) ([]model.Lead, error)

	// GetLead returns one lead, or nil when the id does not exist.
	GetLead(ctx context.Context, id string) (*model.Lead, error)

	// UpdateLeadEmail writes a discovered email and its metadata.
	UpdateLeadEmail(ctx context.Context, id string, upd EmailUpdate) error

	// UpdateLeadExtraData replaces the lead's extra_data map.
	UpdateLeadExtraData(ctx context.Context, id string, extra map[string]any) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
