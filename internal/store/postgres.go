package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/digpatho/growth-api/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements LeadStore using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const leadColumns = `id,
	COALESCE(full_name, ''),
	COALESCE(first_name, ''),
	COALESCE(last_name, ''),
	COALESCE(company, ''),
	COALESCE(job_title, ''),
	COALESCE(geo, ''),
	COALESCE(linkedin_url, ''),
	COALESCE(email, ''),
	COALESCE(email_discovery_method, ''),
	COALESCE(email_confidence, ''),
	COALESCE(email_source_url, ''),
	extra_data,
	updated_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS growth_leads (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	full_name              TEXT,
	first_name             TEXT,
	last_name              TEXT,
	company                TEXT,
	job_title              TEXT,
	geo                    TEXT,
	linkedin_url           TEXT,
	email                  TEXT,
	email_discovery_method TEXT,
	email_confidence       TEXT,
	email_source_url       TEXT,
	extra_data             JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_growth_leads_email ON growth_leads(email);
CREATE INDEX IF NOT EXISTS idx_growth_leads_company ON growth_leads(company);
`

// Migrate creates the growth_leads schema if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// GetLeadsByIDs fetches leads by id set, reordered to match ids.
func (s *PostgresStore) GetLeadsByIDs(ctx context.Context, ids []string) ([]model.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM growth_leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get leads by ids")
	}
	defer rows.Close()

	byID := make(map[string]model.Lead, len(ids))
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		byID[lead.ID] = lead
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: get leads by ids")
	}

	// Keep request order so batch writes happen in lead-list order.
	leads := make([]model.Lead, 0, len(byID))
	for _, id := range ids {
		if lead, ok := byID[id]; ok {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

// GetLead fetches one lead, returning nil when absent.
func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM growth_leads WHERE id = $1`, id)

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// UpdateLeadEmail writes the discovered email. Confidence and source URL are
// written only when non-empty so the Apollo flow, which has neither, leaves
// them NULL.
func (s *PostgresStore) UpdateLeadEmail(ctx context.Context, id string, upd EmailUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE growth_leads
		 SET email = $1,
		     email_discovery_method = $2,
		     email_confidence = NULLIF($3, ''),
		     email_source_url = COALESCE(NULLIF($4, ''), email_source_url),
		     updated_at = now()
		 WHERE id = $5`,
		upd.Email, upd.Method, string(upd.Confidence), upd.SourceURL, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead email %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: update lead email %s: no such lead", id)
	}
	return nil
}

// UpdateLeadExtraData replaces the extra_data document.
func (s *PostgresStore) UpdateLeadExtraData(ctx context.Context, id string, extra map[string]any) error {
	raw, err := json.Marshal(extra)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal extra_data")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE growth_leads SET extra_data = $1, updated_at = now() WHERE id = $2`,
		raw, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead extra_data %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: update lead extra_data %s: no such lead", id)
	}
	return nil
}

// Ping verifies connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eris.Wrap(err, "postgres: ping")
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanLead(row pgx.Row) (model.Lead, error) {
	var lead model.Lead
	var extraRaw []byte
	err := row.Scan(
		&lead.ID,
		&lead.FullName,
		&lead.FirstName,
		&lead.LastName,
		&lead.Company,
		&lead.JobTitle,
		&lead.Geo,
		&lead.LinkedInURL,
		&lead.Email,
		&lead.EmailDiscoveryMethod,
		&lead.EmailConfidence,
		&lead.EmailSourceURL,
		&extraRaw,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Lead{}, err
		}
		return model.Lead{}, eris.Wrap(err, "postgres: scan lead")
	}

	if len(extraRaw) > 0 {
		if err := json.Unmarshal(extraRaw, &lead.ExtraData); err != nil {
			return model.Lead{}, eris.Wrapf(err, "postgres: decode extra_data for %s", lead.ID)
		}
	}
	return lead, nil
}
