// Package model defines shared data structures for the scraper service.
package model

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Columns is the fixed column order of every stored or forwarded job table.
var Columns = []string{"title", "location", "job_level", "date_posted", "description", "job_url", "company"}

// RawPosting is a single offer as returned by a scraping backend, before
// projection. Columns beyond the stored seven land in Extra and are dropped
// by Project.
type RawPosting struct {
	Title       string         `json:"title"`
	Location    string         `json:"location"`
	JobLevel    *string        `json:"job_level"`
	DatePosted  OptionalDate   `json:"date_posted"`
	Description *string        `json:"description"`
	JobURL      string         `json:"job_url"`
	Company     string         `json:"company"`
	Extra       map[string]any `json:"-"`
}

// UnmarshalJSON decodes the stored columns and collects the rest into Extra.
func (p *RawPosting) UnmarshalJSON(b []byte) error {
	type plain RawPosting
	var known plain
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var rest map[string]any
	if err := json.Unmarshal(b, &rest); err != nil {
		return err
	}
	for _, c := range Columns {
		delete(rest, c)
	}
	if len(rest) > 0 {
		known.Extra = rest
	}
	*p = RawPosting(known)
	return nil
}

// Project reduces a posting to the seven stored fields.
func (p RawPosting) Project() JobRecord {
	return JobRecord{
		Title:       p.Title,
		Location:    p.Location,
		JobLevel:    blankToNil(p.JobLevel),
		DatePosted:  p.DatePosted.String(),
		Description: blankToNil(p.Description),
		JobURL:      p.JobURL,
		Company:     p.Company,
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// JobRecord is the normalised shape returned by the API and written to CSV.
// DatePosted is always a string; an unknown date is "".
type JobRecord struct {
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	JobLevel    *string `json:"job_level"`
	DatePosted  string  `json:"date_posted"`
	Description *string `json:"description"`
	JobURL      string  `json:"job_url"`
	Company     string  `json:"company"`
}

func (r JobRecord) row() []string {
	return []string{r.Title, r.Location, deref(r.JobLevel), r.DatePosted, deref(r.Description), r.JobURL, r.Company}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// JobBatch is the ordered result of one query.
type JobBatch []JobRecord

// WriteCSV writes a header row followed by one row per record.
func (b JobBatch) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range b {
		if err := cw.Write(r.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the batch serialised with WriteCSV.
func (b JobBatch) CSV() ([]byte, error) {
	var sb strings.Builder
	if err := b.WriteCSV(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// ─── Dates ────────────────────────────────────────────────────────────────────

// DateLayout is the canonical rendering of a posting date.
const DateLayout = "2006-01-02"

var missingDateSentinels = map[string]bool{
	"": true, "nan": true, "nat": true, "none": true, "null": true,
}

var dateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// OptionalDate is a posting date that scrapers may omit or report as a
// NaN/NaT placeholder. Unparseable non-placeholder text is kept verbatim.
type OptionalDate struct {
	t   time.Time
	raw string
	ok  bool
}

// DateOf returns a present OptionalDate.
func DateOf(t time.Time) OptionalDate { return OptionalDate{t: t, ok: true} }

// ParseOptionalDate interprets scraper output.
func ParseOptionalDate(s string) OptionalDate {
	s = strings.TrimSpace(s)
	if missingDateSentinels[strings.ToLower(s)] {
		return OptionalDate{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return OptionalDate{t: t, ok: true}
		}
	}
	return OptionalDate{raw: s, ok: true}
}

// Valid reports whether a date (or unparsed date text) is present.
func (d OptionalDate) Valid() bool { return d.ok }

// String renders the canonical form, or "" when absent.
func (d OptionalDate) String() string {
	switch {
	case !d.ok:
		return ""
	case d.raw != "":
		return d.raw
	default:
		return d.t.Format(DateLayout)
	}
}

// UnmarshalJSON accepts null, strings, and epoch milliseconds.
func (d *OptionalDate) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*d = OptionalDate{}
	case string:
		*d = ParseOptionalDate(x)
	case float64:
		*d = DateOf(time.UnixMilli(int64(x)).UTC())
	default:
		*d = OptionalDate{}
	}
	return nil
}

// MarshalJSON renders the canonical string form.
func (d OptionalDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ─── Automation ───────────────────────────────────────────────────────────────

// AutomationRecord is a user's automation document, populated by another
// service and read-only here.
type AutomationRecord struct {
	UserID         string            `json:"userId"`
	Email          string            `json:"email"`
	AutomationData []AutomationEntry `json:"automationData"`
}

// AutomationEntry pairs one resume with the job titles it should match.
type AutomationEntry struct {
	ResumeName string     `json:"resumeName"`
	JobTitles  []JobTitle `json:"jobTitles"`
}

// JobTitle is a single nested title object.
type JobTitle struct {
	Title string `json:"title"`
}

// MatcherPayload is the body posted to the remote matcher for one user.
type MatcherPayload struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	ResumeNames []string `json:"resumeNames"`
	JobTitles   []string `json:"jobTitles"`
}
