// Package server exposes the growth API endpoints over HTTP. Adapters only
// validate request shape, invoke the enrichment service, and map internal
// error kinds to transport status codes.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/digpatho/growth-api/internal/aicall"
	"github.com/digpatho/growth-api/internal/config"
	"github.com/digpatho/growth-api/internal/enrich"
	"github.com/digpatho/growth-api/pkg/anthropic"
)

// User-facing messages are in Spanish (the CRM's operating language) and are
// kept separate from the machine-checkable error codes.
const (
	msgRateLimit = "Límite de API alcanzado. Intentá de nuevo en unos minutos."
	msgNoCredits = "Tu cuenta de Anthropic no tiene créditos suficientes. Cargá créditos en https://console.anthropic.com/settings/billing"
)

// Server holds the handlers' shared dependencies.
type Server struct {
	cfg     *config.Config
	enrich  *enrich.Service
	caller  *aicall.Caller
	probe   anthropic.Client // single-attempt client for the key diagnostic
	keyFrom string           // where the Anthropic key was resolved from
}

// New creates a Server. probe may equal the client behind caller.
func New(cfg *config.Config, enrichSvc *enrich.Service, caller *aicall.Caller, probe anthropic.Client, keyFrom string) *Server {
	return &Server{
		cfg:     cfg,
		enrich:  enrichSvc,
		caller:  caller,
		probe:   probe,
		keyFrom: keyFrom,
	}
}

// Router builds the HTTP routing table with CORS and pre-flight support for
// the browser frontend.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/anthropic-proxy", s.handleProxy)
		r.Get("/check-anthropic", s.handleCheckKey)
		r.Post("/email-discovery-ai", s.handleEmailDiscovery)
		r.Post("/lead-enrich-description", s.handleEnrichDescription)
		r.Post("/email-enrichment", s.handleEmailMatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
