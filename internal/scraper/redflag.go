package scraper

import (
	"regexp"
	"strings"

	"jobmate/scraper-service/internal/model"
)

type redFlag struct {
	term string
	re   *regexp.Regexp
}

// RedFlags is a set of excluded terms, matched case-insensitively as whole
// words: "intern" flags "Data Intern" but not "Internal Tools".
type RedFlags []redFlag

// NewRedFlags lowercases and trims terms, dropping blanks.
func NewRedFlags(terms []string) RedFlags {
	flags := make(RedFlags, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		// \b only works for terms that start and end on a word character,
		// so bound on letters and digits instead ("c++", ".net").
		re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(t) + `(?:$|[^\p{L}\p{N}])`)
		flags = append(flags, redFlag{term: t, re: re})
	}
	return flags
}

// Match returns the first flag found in any of fields.
func (r RedFlags) Match(fields ...string) (string, bool) {
	for _, f := range fields {
		for _, flag := range r {
			if flag.re.MatchString(f) {
				return flag.term, true
			}
		}
	}
	return "", false
}

// DropRedFlagged removes postings whose title or company mentions an
// excluded term. Backends that ignore query operators would otherwise let
// them through. Descriptions are not checked: they mention too much.
func DropRedFlagged(postings []model.RawPosting, excluded []string) (kept []model.RawPosting, dropped int) {
	flags := NewRedFlags(excluded)
	if len(flags) == 0 {
		return postings, 0
	}
	kept = make([]model.RawPosting, 0, len(postings))
	for _, p := range postings {
		if _, hit := flags.Match(p.Title, p.Company); hit {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
