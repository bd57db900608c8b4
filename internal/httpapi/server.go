// Package httpapi serves the on-demand job search endpoints.
//
// Routes:
//
//	GET /health    → liveness
//	GET /jobs      → scrape one role and return the jobs inline
//	GET /jobs-s3   → scrape several roles and upload the combined table
//
// /jobs and /jobs-s3 are also served with a trailing slash.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/scraper"
)

const serviceName = "scraper-service"

// Searcher runs a single role/location search.
type Searcher interface {
	Search(ctx context.Context, req scraper.Request) (model.JobBatch, error)
}

// Uploader stores an ad-hoc job table and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, batch model.JobBatch, key string) (string, error)
}

// CountryResolver maps a city to a country name.
type CountryResolver interface {
	CountryForCity(ctx context.Context, city string) (string, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	searcher Searcher
	store    Uploader
	geo      CountryResolver // nil disables lookup; "usa" is used
	logger   arbor.ILogger
	version  string
	now      func() time.Time
}

// NewServer returns a configured Server. geo may be nil.
func NewServer(searcher Searcher, store Uploader, geo CountryResolver, logger arbor.ILogger, version string) *Server {
	return &Server{
		searcher: searcher,
		store:    store,
		geo:      geo,
		logger:   logger,
		version:  version,
		now:      time.Now,
	}
}

// Router builds the chi router with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/jobs", s.getJobs)
	r.Get("/jobs/", s.getJobs)
	r.Get("/jobs-s3", s.getJobsS3)
	r.Get("/jobs-s3/", s.getJobsS3)

	return r
}

// ─── Middleware ───────────────────────────────────────────────────────────────

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		ev := s.logger.Info()
		if ww.Status() >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": s.version,
	})
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
