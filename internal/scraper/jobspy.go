package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jobmate/scraper-service/internal/model"
)

const jobSpyTimeout = 5 * time.Minute

// JobSpySource calls a JobSpy API deployment, which runs the actual site
// scrapers and returns their combined table as JSON.
type JobSpySource struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewJobSpySource constructs a source for the service at baseURL.
func NewJobSpySource(baseURL, apiKey string) *JobSpySource {
	return &JobSpySource{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: jobSpyTimeout},
	}
}

type jobSpyResponse struct {
	Count int                `json:"count"`
	Jobs  []model.RawPosting `json:"jobs"`
}

// Search runs one scrape and returns every posting the backend found.
func (s *JobSpySource) Search(ctx context.Context, p SearchParams) ([]model.RawPosting, error) {
	params := url.Values{}
	for _, site := range p.Sites {
		params.Add("site_name", site)
	}
	params.Set("search_term", p.SearchTerm)
	if p.GoogleSearchTerm != "" {
		params.Set("google_search_term", p.GoogleSearchTerm)
	}
	params.Set("location", p.Location)
	params.Set("results_wanted", strconv.Itoa(p.ResultsWanted))
	params.Set("hours_old", strconv.Itoa(p.HoursOld))
	if p.Country != "" {
		params.Set("country_indeed", p.Country)
	}
	params.Set("linkedin_fetch_description", strconv.FormatBool(p.FetchDescription))

	reqURL := s.BaseURL + "/api/v1/search_jobs?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jobspy returned %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var apiResp jobSpyResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return apiResp.Jobs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
