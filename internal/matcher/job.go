// Package matcher runs the periodic sweep that asks the enterprise matcher to
// score each user's resumes against their automation job titles.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/remote"
)

var (
	ErrMissingEmail = errors.New("automation record has no email")
	ErrNoEntries    = errors.New("automation record has no entries")
)

// Matcher is the remote side of a sweep.
type Matcher interface {
	RequestMatch(ctx context.Context, payload model.MatcherPayload) remote.Result
}

// Summary counts what happened to each record in a sweep.
type Summary struct {
	Users     int
	Requested int
	Failed    int
	Skipped   int
}

// Job is one matcher sweep over the automation store.
type Job struct {
	open    Opener
	matcher Matcher
	logger  arbor.ILogger
}

func NewJob(open Opener, m Matcher, logger arbor.ILogger) *Job {
	return &Job{open: open, matcher: m, logger: logger}
}

// Run lists every automation record and sends one matcher request per valid
// record. Per-record problems are logged and the sweep continues; only
// failing to open or list the store is returned.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	store, err := j.open(ctx)
	if err != nil {
		return sum, fmt.Errorf("open automation store: %w", err)
	}
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list automations: %w", err)
	}
	sum.Users = len(records)

	for _, rec := range records {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		payload, err := BuildPayload(rec)
		switch {
		case errors.Is(err, ErrMissingEmail):
			sum.Skipped++
			j.logger.Error().Str("user_id", rec.UserID).Msg("Automation has no email, skipping")
			continue
		case errors.Is(err, ErrNoEntries):
			sum.Skipped++
			j.logger.Info().Str("user_id", rec.UserID).Msg("Automation has no resumes or job titles, skipping")
			continue
		}

		if res := j.matcher.RequestMatch(ctx, payload); res.OK() {
			sum.Requested++
		} else {
			sum.Failed++
		}
	}

	j.logger.Info().Int("users", sum.Users).Int("requested", sum.Requested).
		Int("failed", sum.Failed).Int("skipped", sum.Skipped).Msg("Matcher sweep complete")
	return sum, nil
}

// BuildPayload flattens a record into the matcher body. Resume names and job
// titles are trimmed, deduplicated and sorted.
func BuildPayload(rec model.AutomationRecord) (model.MatcherPayload, error) {
	if strings.TrimSpace(rec.Email) == "" {
		return model.MatcherPayload{}, ErrMissingEmail
	}

	var resumes, titles []string
	for _, entry := range rec.AutomationData {
		resumes = append(resumes, entry.ResumeName)
		for _, jt := range entry.JobTitles {
			titles = append(titles, jt.Title)
		}
	}
	resumes, titles = uniqueSorted(resumes), uniqueSorted(titles)

	if len(resumes) == 0 && len(titles) == 0 {
		return model.MatcherPayload{}, ErrNoEntries
	}

	return model.MatcherPayload{
		UserID:      rec.UserID,
		Email:       strings.TrimSpace(rec.Email),
		ResumeNames: resumes,
		JobTitles:   titles,
	}, nil
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
