package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/scraper-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per (role × location) pair
	httpTimeout    = 15 * time.Second
)

// AdzunaSource fetches job offers from the Adzuna public API. It only knows
// one site, so SearchParams.Sites is ignored.
type AdzunaSource struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	BaseURL string
	client  *http.Client
}

// NewAdzunaSource constructs a source with a shared HTTP client.
func NewAdzunaSource(appID, appKey, country string) *AdzunaSource {
	return &AdzunaSource{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		BaseURL: adzunaBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Search retrieves offers page by page until ResultsWanted is reached, the
// API runs dry, or adzunaMaxPages is hit.
func (f *AdzunaSource) Search(ctx context.Context, p SearchParams) ([]model.RawPosting, error) {
	want := p.ResultsWanted
	if want <= 0 {
		want = adzunaPageSize
	}

	var results []model.RawPosting
	for page := 1; page <= adzunaMaxPages && len(results) < want; page++ {
		batch, err := f.fetchPage(ctx, p, page)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break // No more results
		}
		results = append(results, batch...)
		if len(batch) < adzunaPageSize {
			break // Last page
		}
	}

	if len(results) > want {
		results = results[:want]
	}
	return results, nil
}

func (f *AdzunaSource) fetchPage(ctx context.Context, p SearchParams, page int) ([]model.RawPosting, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", f.BaseURL, f.Country, page)

	params := url.Values{}
	params.Set("app_id", f.AppID)
	params.Set("app_key", f.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("where", p.Location)
	params.Set("sort_by", "date")
	if p.Role != "" {
		params.Set("what_phrase", strings.ToLower(p.Role))
	} else {
		params.Set("what", p.SearchTerm)
	}
	if skills := nonBlank(p.RequiredSkills); len(skills) > 0 {
		params.Set("what_or", strings.Join(skills, " "))
	}
	if terms := nonBlank(p.ExcludedTerms); len(terms) > 0 {
		params.Set("what_exclude", strings.Join(terms, " "))
	}
	if p.HoursOld > 0 {
		params.Set("max_days_old", strconv.Itoa((p.HoursOld+23)/24))
	}

	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	results := make([]model.RawPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		posting := model.RawPosting{
			Title:      r.Title,
			Company:    r.Company.DisplayName,
			Location:   r.Location.DisplayName,
			JobURL:     r.RedirectURL,
			DatePosted: model.ParseOptionalDate(r.Created),
		}
		if p.FetchDescription && r.Description != "" {
			desc := r.Description
			posting.Description = &desc
		}
		if r.ContractTime != "" {
			level := r.ContractTime
			posting.JobLevel = &level
		}
		if posting.JobURL == "" {
			posting.JobURL = fmt.Sprintf("adzuna:%s", r.ID)
		}
		results = append(results, posting)
	}

	return results, nil
}
