package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/scraper"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

type fakeSearcher struct {
	requests []scraper.Request
	byRole   map[string]model.JobBatch
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, req scraper.Request) (model.JobBatch, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.byRole[req.Role]; ok {
		return b, nil
	}
	return model.JobBatch{}, nil
}

type fakeUploader struct {
	keys    []string
	batches []model.JobBatch
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, b model.JobBatch, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	f.batches = append(f.batches, b)
	return "https://bucket.s3.us-east-1.amazonaws.com/scrape/" + key, nil
}

type fakeGeo struct {
	country string
	err     error
	calls   int
}

func (f *fakeGeo) CountryForCity(context.Context, string) (string, error) {
	f.calls++
	return f.country, f.err
}

func newTestServer(s Searcher, u Uploader, g CountryResolver) *Server {
	srv := NewServer(s, u, g, arbor.NewNoOpLogger(), "test")
	srv.now = func() time.Time { return time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC) }
	return srv
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func job(title string) model.JobRecord {
	return model.JobRecord{Title: title, Location: "Austin, TX", JobURL: "https://j/" + title, Company: "Acme"}
}

// ── /health ────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestServer(&fakeSearcher{}, &fakeUploader{}, nil).Router(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "scraper-service", body["service"])
}

// ── /jobs ──────────────────────────────────────────────────────────────────

func TestJobs_Defaults(t *testing.T) {
	s := &fakeSearcher{byRole: map[string]model.JobBatch{"software engineer": {job("a")}}}
	rec, body := get(t, newTestServer(s, &fakeUploader{}, nil).Router(), "/jobs/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total_jobs"])

	require.Len(t, s.requests, 1)
	req := s.requests[0]
	assert.Equal(t, "software engineer", req.Role)
	assert.Equal(t, "San Francisco, CA", req.Location)
	assert.Equal(t, 72, req.HoursOld)
	assert.Equal(t, 20, req.ResultsWanted)
	assert.Equal(t, "USA", req.Country)
	assert.False(t, req.IncludeDescription)
	assert.Empty(t, req.Sites)
}

func TestJobs_ZeroRows(t *testing.T) {
	rec := httptest.NewRecorder()
	h := newTestServer(&fakeSearcher{}, &fakeUploader{}, nil).Router()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs?role=data+engineer", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_jobs":0,"jobs":[]}`, rec.Body.String())
}

func TestJobs_ListParams(t *testing.T) {
	s := &fakeSearcher{}
	h := newTestServer(s, &fakeUploader{}, nil).Router()
	get(t, h, "/jobs?required_skills=python&required_skills%5B%5D=sql&excluded_terms=intern&include_description=true&hours=24")

	require.Len(t, s.requests, 1)
	assert.Equal(t, []string{"python", "sql"}, s.requests[0].RequiredSkills)
	assert.Equal(t, []string{"intern"}, s.requests[0].ExcludedTerms)
	assert.True(t, s.requests[0].IncludeDescription)
	assert.Equal(t, 24, s.requests[0].HoursOld)
}

func TestJobs_BadParams(t *testing.T) {
	cases := map[string]string{
		"/jobs?hours=abc":                 "hours must be an integer",
		"/jobs?hours=0":                   "hours must be at least 1",
		"/jobs?include_description=maybe": "include_description must be a boolean",
		"/jobs?max_result_wanted=-3":      "max_result_wanted must be at least 1",
	}
	for target, msg := range cases {
		t.Run(target, func(t *testing.T) {
			s := &fakeSearcher{}
			rec, body := get(t, newTestServer(s, &fakeUploader{}, nil).Router(), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, msg, body["error"])
			assert.Empty(t, s.requests)
		})
	}
}

func TestJobs_SearchFailure(t *testing.T) {
	rec, body := get(t, newTestServer(&fakeSearcher{err: errors.New("backend down")}, &fakeUploader{}, nil).Router(), "/jobs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch jobs.", body["error"])
}

// ── /jobs-s3 ───────────────────────────────────────────────────────────────

func TestJobsS3_HoursExceededRejectedBeforeScrape(t *testing.T) {
	s := &fakeSearcher{}
	rec, body := get(t, newTestServer(s, &fakeUploader{}, nil).Router(), "/jobs-s3/?last_hours=48")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Hours cannot exceed 24 hours.", body["error"])
	assert.Empty(t, s.requests)
}

func TestJobsS3_UploadsCombinedRoles(t *testing.T) {
	s := &fakeSearcher{byRole: map[string]model.JobBatch{
		"data engineer": {job("a"), job("b")},
		"data analyst":  {job("c")},
	}}
	u := &fakeUploader{}
	g := &fakeGeo{country: "united states"}
	rec, body := get(t, newTestServer(s, u, g).Router(),
		"/jobs-s3?roles=data+engineer&roles=data+analyst&roles=ml+engineer&site_name=indeed&site_name=linkedin&location=Austin,+TX")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "File successfully uploaded to S3.", body["message"])
	assert.Equal(t, "https://bucket.s3.us-east-1.amazonaws.com/scrape/all_other/jobs_20240501_090807.csv", body["url"])

	require.Len(t, u.batches, 1)
	assert.Len(t, u.batches[0], 3)
	assert.Equal(t, []string{"all_other/jobs_20240501_090807.csv"}, u.keys)

	require.Len(t, s.requests, 3)
	for _, req := range s.requests {
		assert.Equal(t, []string{"indeed", "linkedin"}, req.Sites)
		assert.Equal(t, "united states", req.Country)
		assert.Equal(t, 24, req.HoursOld)
		assert.True(t, req.IncludeDescription)
	}
	assert.Equal(t, 1, g.calls)
}

func TestJobsS3_NoJobs(t *testing.T) {
	u := &fakeUploader{}
	rec, body := get(t, newTestServer(&fakeSearcher{}, u, nil).Router(), "/jobs-s3")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No jobs found for the given roles.", body["message"])
	assert.Empty(t, u.keys)
}

func TestJobsS3_CountryFallback(t *testing.T) {
	s := &fakeSearcher{}
	g := &fakeGeo{err: errors.New("quota")}
	get(t, newTestServer(s, &fakeUploader{}, g).Router(), "/jobs-s3")

	require.Len(t, s.requests, 1)
	assert.Equal(t, "usa", s.requests[0].Country)
}

func TestJobsS3_ExplicitCountrySkipsLookup(t *testing.T) {
	s := &fakeSearcher{}
	g := &fakeGeo{country: "canada"}
	get(t, newTestServer(s, &fakeUploader{}, g).Router(), "/jobs-s3?country=UK")

	assert.Equal(t, 0, g.calls)
	assert.Equal(t, "UK", s.requests[0].Country)
}

func TestJobsS3_UploadFailure(t *testing.T) {
	s := &fakeSearcher{byRole: map[string]model.JobBatch{"software engineer": {job("a")}}}
	rec, body := get(t, newTestServer(s, &fakeUploader{err: errors.New("denied")}, nil).Router(), "/jobs-s3")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to upload jobs to S3.", body["error"])
}

func TestJobsS3_ScrapeFailure(t *testing.T) {
	rec, body := get(t, newTestServer(&fakeSearcher{err: errors.New("x")}, &fakeUploader{}, nil).Router(), "/jobs-s3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to upload jobs to S3.", body["error"])
}

func TestJobsS3_LastHoursZero(t *testing.T) {
	rec, body := get(t, newTestServer(&fakeSearcher{}, &fakeUploader{}, nil).Router(), "/jobs-s3?last_hours=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "last_hours must be at least 1", body["error"])
}
