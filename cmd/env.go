package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/internal/enrich"
	"github.com/digpatho/growth-api/internal/store"
	"github.com/digpatho/growth-api/pkg/anthropic"
	"github.com/digpatho/growth-api/pkg/apollo"
)

// appEnv holds the initialized store, clients, and enrichment service shared
// by the serve/discover/check-key commands.
type appEnv struct {
	Store   store.LeadStore
	Caller  *aicall.Caller
	Probe   anthropic.Client
	Enrich  *enrich.Service
	KeyFrom string
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		e.Store.Close()
	}
}

// initEnv sets up the store and API clients and builds the enrichment
// service. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("GROWTH_STORE_DATABASE_URL is required")
	}
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("GROWTH_ANTHROPIC_KEY not set, AI endpoints will reject requests")
	}

	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	caller := aicall.New(client, aicall.WithSchedule(cfg.Anthropic.RetrySchedule()))

	var apolloClient apollo.Client
	if cfg.Apollo.Key != "" {
		opts := []apollo.Option{}
		if cfg.Apollo.RequestsPerSec > 0 {
			opts = append(opts, apollo.WithRateLimit(cfg.Apollo.RequestsPerSec))
		}
		apolloClient = apollo.NewClient(cfg.Apollo.Key, opts...)
	} else {
		zap.L().Debug("GROWTH_APOLLO_KEY not set, email matching disabled")
	}

	enrichCfg := enrich.Config{
		DiscoveryModel:     cfg.Discovery.Model,
		DiscoveryMaxTokens: cfg.Discovery.MaxTokens,
		DiscoveryMaxUses:   cfg.Discovery.MaxSearches,
		DiscoveryCap:       cfg.Discovery.BatchCap,
		DiscoveryDelay:     msDuration(cfg.Discovery.ItemDelayMs),
		EnrichModel:        cfg.Enrich.Model,
		EnrichMaxTokens:    cfg.Enrich.MaxTokens,
		EnrichMaxUses:      cfg.Enrich.MaxSearches,
		MatchCap:           cfg.Enrich.MatchCap,
		MatchDelay:         msDuration(cfg.Enrich.ItemDelayMs),
		BreakerThreshold:   cfg.Discovery.BreakerTrips,
	}

	return &appEnv{
		Store:   st,
		Caller:  caller,
		Probe:   client,
		Enrich:  enrich.NewService(st, caller, apolloClient, enrichCfg),
		KeyFrom: keySource(),
	}, nil
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// keySource reports where the Anthropic key was resolved from, for the
// diagnostic endpoint. Never the key itself.
func keySource() string {
	if os.Getenv("GROWTH_ANTHROPIC_KEY") != "" {
		return "env:GROWTH_ANTHROPIC_KEY"
	}
	return "config.yaml"
}
