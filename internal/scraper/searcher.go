package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"jobmate/scraper-service/internal/model"
)

// DefaultSites is used when a request names no sites.
var DefaultSites = []string{"indeed"}

// Request is one role/location query, shared by the scheduled sweep and the
// HTTP endpoints.
type Request struct {
	Role               string
	Location           string
	HoursOld           int
	ResultsWanted      int
	RequiredSkills     []string
	ExcludedTerms      []string
	Country            string
	Sites              []string
	IncludeDescription bool
}

// Searcher runs a Request against a Source and returns the normalised
// batch. Calls to the Source are paced by a limiter shared across the
// scheduler and HTTP handlers.
type Searcher struct {
	source  Source
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewSearcher constructs a Searcher allowing perMinute backend calls per
// minute. perMinute <= 0 disables pacing.
func NewSearcher(source Source, perMinute int, logger arbor.ILogger) *Searcher {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &Searcher{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Search scrapes, drops red-flagged postings, and projects the rest to the
// stored columns. Zero results is an empty, non-nil batch.
func (s *Searcher) Search(ctx context.Context, req Request) (model.JobBatch, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	sites := req.Sites
	if len(sites) == 0 {
		sites = DefaultSites
	}

	raw, err := s.source.Search(ctx, SearchParams{
		Sites:            sites,
		SearchTerm:       BuildQuery(req.Role, req.RequiredSkills, req.ExcludedTerms),
		Role:             req.Role,
		RequiredSkills:   req.RequiredSkills,
		ExcludedTerms:    req.ExcludedTerms,
		GoogleSearchTerm: fmt.Sprintf("%s jobs near %s since %d hours ago", req.Role, req.Location, req.HoursOld),
		Location:         req.Location,
		ResultsWanted:    req.ResultsWanted,
		HoursOld:         req.HoursOld,
		Country:          req.Country,
		FetchDescription: req.IncludeDescription,
	})
	if err != nil {
		return nil, fmt.Errorf("scrape %q in %q: %w", req.Role, req.Location, err)
	}

	kept, dropped := DropRedFlagged(raw, req.ExcludedTerms)
	if dropped > 0 {
		s.logger.Debug().Str("role", req.Role).Str("location", req.Location).
			Int("dropped", dropped).Msg("Dropped postings matching excluded terms")
	}

	return Normalize(kept), nil
}

// Normalize projects postings to JobRecords, keeping order.
func Normalize(postings []model.RawPosting) model.JobBatch {
	batch := make(model.JobBatch, 0, len(postings))
	for _, p := range postings {
		batch = append(batch, p.Project())
	}
	return batch
}
