package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/events"
	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/remote"
)

// ObjectStore is where job tables are kept. Keys are File Naming keys.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, batch model.JobBatch, key string) (string, error)
}

// Forwarder receives a copy of every uploaded table.
type Forwarder interface {
	UploadCSV(ctx context.Context, csv []byte) remote.Result
}

// Publisher announces uploads.
type Publisher interface {
	Publish(ctx context.Context, channel string, v any) error
}

// Target is one (city, role) pair of the scheduled sweep.
type Target struct {
	City          string
	Role          string
	ResultsWanted int
	HoursOld      int
	Country       string
	Sites         []string
}

// Outcome is what happened to one Target.
type Outcome struct {
	Status Status
	Key    string
	URL    string
	Count  int
}

// Status of a single ScrapeAndUpload call.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped" // already uploaded today
	StatusEmpty    Status = "empty"   // scraper found nothing
)

// BatchSummary counts outcomes across one sweep.
type BatchSummary struct {
	Uploaded, Skipped, Empty, Failed int
}

// Orchestrator runs scrape → forward → upload for each target, at most
// once per target per day.
type Orchestrator struct {
	searcher  *Searcher
	store     ObjectStore
	forwarder Forwarder // nil disables forwarding
	publisher Publisher
	logger    arbor.ILogger
	now       func() time.Time
}

// NewOrchestrator constructs an Orchestrator. forwarder may be nil.
func NewOrchestrator(searcher *Searcher, store ObjectStore, forwarder Forwarder, publisher Publisher, logger arbor.ILogger) *Orchestrator {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Orchestrator{
		searcher:  searcher,
		store:     store,
		forwarder: forwarder,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RunBatch sweeps cities × roles sequentially. A failing pair is logged and
// the sweep continues; only context cancellation stops it early.
func (o *Orchestrator) RunBatch(ctx context.Context, cities, roles []string, tmpl Target) BatchSummary {
	var sum BatchSummary

	if len(cities) == 0 {
		o.logger.Warn().Msg("No cities found to scrape jobs for")
		return sum
	}

	o.logger.Info().Int("cities", len(cities)).Int("roles", len(roles)).Msg("Scrape sweep started")

	for _, city := range cities {
		for _, role := range roles {
			if ctx.Err() != nil {
				o.logger.Warn().Err(ctx.Err()).Msg("Scrape sweep interrupted")
				return sum
			}

			t := tmpl
			t.City, t.Role = city, role
			out, err := o.ScrapeAndUpload(ctx, t)
			if err != nil {
				sum.Failed++
				o.logger.Error().Err(err).Str("city", city).Str("role", role).
					Msg("Error scraping and uploading jobs, continuing")
				continue
			}
			switch out.Status {
			case StatusUploaded:
				sum.Uploaded++
			case StatusSkipped:
				sum.Skipped++
			case StatusEmpty:
				sum.Empty++
			}
		}
	}

	o.logger.Info().Int("uploaded", sum.Uploaded).Int("skipped", sum.Skipped).
		Int("empty", sum.Empty).Int("failed", sum.Failed).Msg("Scrape sweep complete")
	return sum
}

// ScrapeAndUpload processes one target. An object already stored under
// today's key means the target is skipped without scraping.
func (o *Orchestrator) ScrapeAndUpload(ctx context.Context, t Target) (Outcome, error) {
	key := FileName(t.City, t.Role, o.now())

	exists, err := o.store.Exists(ctx, key)
	if err != nil {
		return Outcome{Key: key}, fmt.Errorf("check %s: %w", key, err)
	}
	if exists {
		o.logger.Info().Str("city", t.City).Str("role", t.Role).Str("key", key).
			Msg("File already exists in storage, skipping scrape")
		return Outcome{Status: StatusSkipped, Key: key}, nil
	}

	batch, err := o.searcher.Search(ctx, Request{
		Role:          t.Role,
		Location:      t.City,
		HoursOld:      t.HoursOld,
		ResultsWanted: t.ResultsWanted,
		Country:       t.Country,
		Sites:         t.Sites,
	})
	if err != nil {
		return Outcome{Key: key}, err
	}
	if len(batch) == 0 {
		o.logger.Info().Str("city", t.City).Str("role", t.Role).Msg("No jobs found")
		return Outcome{Status: StatusEmpty, Key: key}, nil
	}

	// Forwarding is independent of storage: its failure is logged by the
	// client and the upload still happens.
	if o.forwarder != nil {
		csv, err := batch.CSV()
		if err != nil {
			o.logger.Error().Err(err).Str("key", key).Msg("CSV encode for ingestion failed")
		} else if res := o.forwarder.UploadCSV(ctx, csv); !res.OK() {
			o.logger.Warn().Str("key", key).Str("outcome", res.Outcome.String()).
				Msg("Ingestion forward failed, uploading anyway")
		}
	}

	url, err := o.store.Upload(ctx, batch, key)
	if err != nil {
		return Outcome{Key: key}, fmt.Errorf("upload %s: %w", key, err)
	}

	o.logger.Info().Str("city", t.City).Str("role", t.Role).Str("url", url).
		Int("jobs", len(batch)).Msg("Jobs uploaded")

	ev := events.JobsUploaded{
		Type:     events.ChannelJobsUploaded,
		Location: t.City,
		Role:     t.Role,
		URL:      url,
		Count:    len(batch),
	}
	if err := o.publisher.Publish(ctx, events.ChannelJobsUploaded, ev); err != nil {
		o.logger.Warn().Err(err).Msg("Publish EVENT_JOBS_UPLOADED failed")
	}

	return Outcome{Status: StatusUploaded, Key: key, URL: url, Count: len(batch)}, nil
}
