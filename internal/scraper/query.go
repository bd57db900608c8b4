// Package scraper implements job offer fetching, filtering and upload.
package scraper

import "strings"

// BuildQuery combines a role, required skills and excluded terms into one
// search-engine query:
//
//	"data scientist" python OR sql -intern
//
// The role is lowercased and quoted for an exact match. Double quotes inside
// the role are dropped rather than escaped, since job boards do not honour
// escaped quotes inside a phrase. Blank skills and terms are ignored.
func BuildQuery(role string, requiredSkills, excludedTerms []string) string {
	role = strings.ReplaceAll(role, `"`, "")
	role = strings.Join(strings.Fields(strings.ToLower(role)), " ")

	parts := make([]string, 0, 3)
	if role != "" {
		parts = append(parts, `"`+role+`"`)
	}

	skills := nonBlank(requiredSkills)
	if len(skills) > 0 {
		parts = append(parts, strings.Join(skills, " OR "))
	}

	terms := nonBlank(excludedTerms)
	if len(terms) > 0 {
		excl := make([]string, len(terms))
		for i, t := range terms {
			excl[i] = "-" + t
		}
		parts = append(parts, strings.Join(excl, " "))
	}

	return strings.Join(parts, " ")
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
