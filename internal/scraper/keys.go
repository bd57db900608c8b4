package scraper

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

const dayLayout = "2006-01-02"

// FileName derives the storage key for one (location, role) scrape on day:
//
//	{location}/{role}/{YYYY-MM-DD}/{YYYY-MM-DD}.csv
//
// The key doubles as the idempotency key, so there is exactly one slot per
// pair per calendar day. Segments are NFC-normalised and may not contain "/".
func FileName(location, role string, day time.Time) string {
	d := day.Format(dayLayout)
	return fmt.Sprintf("%s/%s/%s/%s.csv", keySegment(location), keySegment(role), d, d)
}

// AdHocFileName names the combined upload of an on-demand multi-role scrape.
func AdHocFileName(at time.Time) string {
	return fmt.Sprintf("all_other/jobs_%s.csv", at.Format("20060102_150405"))
}

func keySegment(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "/", "-")
}
