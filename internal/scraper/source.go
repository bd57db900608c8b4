package scraper

import (
	"context"

	"jobmate/scraper-service/internal/model"
)

// SearchParams is what a Source receives for one query. SearchTerm is the
// combined BuildQuery string; Role, RequiredSkills and ExcludedTerms carry
// the same information for backends with structured search fields.
type SearchParams struct {
	Sites            []string
	SearchTerm       string
	Role             string
	RequiredSkills   []string
	ExcludedTerms    []string
	GoogleSearchTerm string
	Location         string
	ResultsWanted    int
	HoursOld         int
	Country          string
	FetchDescription bool
}

// Source is an external scraping backend. Site crawling, pagination and
// anti-bot handling all live behind it.
type Source interface {
	Search(ctx context.Context, p SearchParams) ([]model.RawPosting, error)
}
