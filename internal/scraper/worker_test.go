package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/remote"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

type fakeSource struct {
	mu      sync.Mutex
	calls   []SearchParams
	results map[string][]model.RawPosting // by location
	failFor map[string]bool               // by location
}

func (f *fakeSource) Search(_ context.Context, p SearchParams) ([]model.RawPosting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if f.failFor[p.Location] {
		return nil, errors.New("scraper exploded")
	}
	return f.results[p.Location], nil
}

type memStore struct {
	objects   map[string]model.JobBatch
	existsErr error
	uploadErr error
	uploads   int
}

func newMemStore() *memStore { return &memStore{objects: map[string]model.JobBatch{}} }

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Upload(_ context.Context, b model.JobBatch, key string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads++
	m.objects[key] = b
	return "https://bucket/scrape/" + key, nil
}

type fakeForwarder struct {
	outcome remote.Outcome
	bodies  []string
}

func (f *fakeForwarder) UploadCSV(_ context.Context, csv []byte) remote.Result {
	f.bodies = append(f.bodies, string(csv))
	return remote.Result{Outcome: f.outcome}
}

type recordingPublisher struct{ channels []string }

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ any) error {
	p.channels = append(p.channels, channel)
	return nil
}

var fixedDay = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestOrchestrator(src Source, store ObjectStore, fwd Forwarder, pub Publisher) *Orchestrator {
	logger := arbor.NewNoOpLogger()
	o := NewOrchestrator(NewSearcher(src, 0, logger), store, fwd, pub, logger)
	o.now = func() time.Time { return fixedDay }
	return o
}

func posting(title string) model.RawPosting {
	return model.RawPosting{Title: title, Location: "x", JobURL: "https://j/" + title, Company: "Acme"}
}

// ── ScrapeAndUpload ────────────────────────────────────────────────────────

func TestScrapeAndUpload_UploadsUnderDailyKey(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a"), posting("b")}}}
	store := newMemStore()
	pub := &recordingPublisher{}
	o := newTestOrchestrator(src, store, nil, pub)

	out, err := o.ScrapeAndUpload(context.Background(), Target{City: "Austin, TX", Role: "data engineer", ResultsWanted: 20, HoursOld: 24, Country: "USA"})
	require.NoError(t, err)

	assert.Equal(t, StatusUploaded, out.Status)
	assert.Equal(t, "Austin, TX/data engineer/2024-05-01/2024-05-01.csv", out.Key)
	assert.Equal(t, "https://bucket/scrape/"+out.Key, out.URL)
	assert.Equal(t, 2, out.Count)
	assert.Len(t, store.objects[out.Key], 2)
	assert.Equal(t, []string{"EVENT_JOBS_UPLOADED"}, pub.channels)

	require.Len(t, src.calls, 1)
	assert.Equal(t, `"data engineer"`, src.calls[0].SearchTerm)
	assert.Equal(t, []string{"indeed"}, src.calls[0].Sites)
	assert.Equal(t, 24, src.calls[0].HoursOld)
}

func TestScrapeAndUpload_RerunSameDayIsNoop(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a")}}}
	store := newMemStore()
	o := newTestOrchestrator(src, store, nil, nil)
	target := Target{City: "Austin, TX", Role: "data engineer"}

	_, err := o.ScrapeAndUpload(context.Background(), target)
	require.NoError(t, err)

	out, err := o.ScrapeAndUpload(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Len(t, src.calls, 1, "second run must not scrape")
	assert.Equal(t, 1, store.uploads, "second run must not upload")
}

func TestScrapeAndUpload_EmptyResultNoUpload(t *testing.T) {
	src := &fakeSource{}
	store := newMemStore()
	fwd := &fakeForwarder{}
	o := newTestOrchestrator(src, store, fwd, nil)

	out, err := o.ScrapeAndUpload(context.Background(), Target{City: "Nowhere, NA", Role: "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, out.Status)
	assert.Equal(t, 0, store.uploads)
	assert.Empty(t, fwd.bodies)
}

func TestScrapeAndUpload_ForwardFailureStillUploads(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a")}}}
	store := newMemStore()
	fwd := &fakeForwarder{outcome: remote.TransientFailure}
	o := newTestOrchestrator(src, store, fwd, nil)

	out, err := o.ScrapeAndUpload(context.Background(), Target{City: "Austin, TX", Role: "r"})
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, out.Status)
	assert.Equal(t, 1, store.uploads)
	require.Len(t, fwd.bodies, 1)
	assert.True(t, strings.HasPrefix(fwd.bodies[0], strings.Join(model.Columns, ",")+"\n"))
}

func TestScrapeAndUpload_ExistsErrorSkipsPair(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a")}}}
	store := newMemStore()
	store.existsErr = errors.New("throttled")
	o := newTestOrchestrator(src, store, nil, nil)

	_, err := o.ScrapeAndUpload(context.Background(), Target{City: "Austin, TX", Role: "r"})
	require.Error(t, err)
	assert.Empty(t, src.calls)
	assert.Equal(t, 0, store.uploads)
}

func TestScrapeAndUpload_UploadErrorReturned(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a")}}}
	store := newMemStore()
	store.uploadErr = errors.New("denied")
	o := newTestOrchestrator(src, store, nil, nil)

	_, err := o.ScrapeAndUpload(context.Background(), Target{City: "Austin, TX", Role: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

// ── RunBatch ───────────────────────────────────────────────────────────────

func TestRunBatch_FailingPairDoesNotStopBatch(t *testing.T) {
	src := &fakeSource{
		results: map[string][]model.RawPosting{
			"Austin, TX":  {posting("a")},
			"Seattle, WA": {posting("b")},
		},
		failFor: map[string]bool{"Boston, MA": true},
	}
	store := newMemStore()
	o := newTestOrchestrator(src, store, nil, nil)

	sum := o.RunBatch(context.Background(),
		[]string{"Boston, MA", "Austin, TX", "Seattle, WA"},
		[]string{"data engineer"},
		Target{ResultsWanted: 20, HoursOld: 24})

	assert.Equal(t, BatchSummary{Uploaded: 2, Failed: 1}, sum)
	assert.Len(t, src.calls, 3)
	assert.Contains(t, store.objects, "Seattle, WA/data engineer/2024-05-01/2024-05-01.csv")
}

func TestRunBatch_SecondSweepSkipsEverything(t *testing.T) {
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {posting("a")}}}
	store := newMemStore()
	o := newTestOrchestrator(src, store, nil, nil)
	roles := []string{"data engineer", "data analyst"}

	o.RunBatch(context.Background(), []string{"Austin, TX"}, roles, Target{})
	sum := o.RunBatch(context.Background(), []string{"Austin, TX"}, roles, Target{})

	assert.Equal(t, BatchSummary{Skipped: 2}, sum)
	assert.Len(t, src.calls, 2)
	assert.Equal(t, 2, store.uploads)
}

func TestRunBatch_NoCities(t *testing.T) {
	src := &fakeSource{}
	o := newTestOrchestrator(src, newMemStore(), nil, nil)
	assert.Equal(t, BatchSummary{}, o.RunBatch(context.Background(), nil, []string{"x"}, Target{}))
	assert.Empty(t, src.calls)
}

func TestRunBatch_StopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	o := newTestOrchestrator(src, newMemStore(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o.RunBatch(ctx, []string{"a", "b"}, []string{"x"}, Target{})
	assert.Empty(t, src.calls)
}

// ── Searcher ───────────────────────────────────────────────────────────────

func TestSearcher_ProjectsAndFilters(t *testing.T) {
	level := "mid"
	src := &fakeSource{results: map[string][]model.RawPosting{"Austin, TX": {
		{Title: "Data Intern", Company: "A", DatePosted: model.ParseOptionalDate("NaN")},
		{Title: "Data Engineer", Company: "B", JobLevel: &level, DatePosted: model.ParseOptionalDate("2024-04-30")},
	}}}
	s := NewSearcher(src, 0, arbor.NewNoOpLogger())

	batch, err := s.Search(context.Background(), Request{
		Role: "Data Engineer", Location: "Austin, TX", HoursOld: 72,
		RequiredSkills: []string{"python"}, ExcludedTerms: []string{"intern"},
		Sites: []string{"linkedin"}, IncludeDescription: true,
	})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "2024-04-30", batch[0].DatePosted)

	require.Len(t, src.calls, 1)
	call := src.calls[0]
	assert.Equal(t, `"data engineer" python -intern`, call.SearchTerm)
	assert.Equal(t, "Data Engineer jobs near Austin, TX since 72 hours ago", call.GoogleSearchTerm)
	assert.Equal(t, []string{"linkedin"}, call.Sites)
	assert.True(t, call.FetchDescription)
}

func TestSearcher_EmptyIsNonNil(t *testing.T) {
	s := NewSearcher(&fakeSource{}, 0, arbor.NewNoOpLogger())
	batch, err := s.Search(context.Background(), Request{Role: "x", Location: "y"})
	require.NoError(t, err)
	assert.NotNil(t, batch)
	assert.Len(t, batch, 0)
}

func TestSearcher_RespectsCancelledContext(t *testing.T) {
	s := NewSearcher(&fakeSource{}, 1, arbor.NewNoOpLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, Request{Role: "x"})
	assert.Error(t, err)
}
