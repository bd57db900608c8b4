package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a client error reported as 400 {"error": Msg}.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// ─── Parameter sets ───────────────────────────────────────────────────────────

type jobsParams struct {
	Role               string   `query:"role" validate:"required"`
	Location           string   `query:"location" validate:"required"`
	Hours              int      `query:"hours" validate:"min=1"`
	IncludeDescription bool     `query:"include_description"`
	MaxResultWanted    int      `query:"max_result_wanted" validate:"min=1,max=1000"`
	RequiredSkills     []string `query:"required_skills"`
	ExcludedTerms      []string `query:"excluded_terms"`
	Country            string   `query:"country" validate:"required"`
}

type jobsS3Params struct {
	Roles              []string `query:"roles" validate:"min=1,dive,required"`
	Location           string   `query:"location" validate:"required"`
	LastHours          int      `query:"last_hours" validate:"min=1,max=24"`
	IncludeDescription bool     `query:"include_description"`
	MaxResultWanted    int      `query:"max_result_wanted" validate:"min=1,max=1000"`
	RequiredSkills     []string `query:"required_skills"`
	ExcludedTerms      []string `query:"excluded_terms"`
	SiteName           []string `query:"site_name" validate:"min=1,dive,required"`
	Country            string   `query:"country"` // resolved from location when empty
}

const errHoursExceeded = "Hours cannot exceed 24 hours."

func parseJobsParams(q url.Values) (jobsParams, error) {
	p := jobsParams{
		Role:           unquote(stringParam(q, "role", "software engineer")),
		Location:       stringParam(q, "location", "San Francisco, CA"),
		Country:        stringParam(q, "country", "USA"),
		RequiredSkills: listParam(q, "required_skills"),
		ExcludedTerms:  listParam(q, "excluded_terms"),
	}

	var err error
	if p.Hours, err = intParam(q, "hours", 72); err != nil {
		return p, err
	}
	if p.IncludeDescription, err = boolParam(q, "include_description", false); err != nil {
		return p, err
	}
	if p.MaxResultWanted, err = intParam(q, "max_result_wanted", 20); err != nil {
		return p, err
	}

	return p, check(p)
}

// parseJobsS3Params rejects last_hours above 24 with its own message before
// any other validation.
func parseJobsS3Params(q url.Values) (jobsS3Params, error) {
	p := jobsS3Params{
		Location:       stringParam(q, "location", "San Francisco, CA"),
		Country:        strings.TrimSpace(q.Get("country")),
		RequiredSkills: listParam(q, "required_skills"),
		ExcludedTerms:  listParam(q, "excluded_terms"),
	}

	var err error
	if p.LastHours, err = intParam(q, "last_hours", 24); err != nil {
		return p, err
	}
	if p.LastHours > 24 {
		return p, &ValidationError{Msg: errHoursExceeded}
	}
	if p.IncludeDescription, err = boolParam(q, "include_description", true); err != nil {
		return p, err
	}
	if p.MaxResultWanted, err = intParam(q, "max_result_wanted", 20); err != nil {
		return p, err
	}

	p.Roles = listParam(q, "roles")
	if len(p.Roles) == 0 {
		p.Roles = []string{"software engineer"}
	}
	for i, r := range p.Roles {
		p.Roles[i] = unquote(r)
	}

	p.SiteName = listParam(q, "site_name")
	if len(p.SiteName) == 0 {
		p.SiteName = []string{"indeed"}
	}

	return p, check(p)
}

// ─── Decoding helpers ─────────────────────────────────────────────────────────

func stringParam(q url.Values, name, def string) string {
	if v := strings.TrimSpace(q.Get(name)); v != "" {
		return v
	}
	return def
}

// listParam collects repeated values of name and name[], dropping blanks.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, key := range []string{name, name + "[]"} {
		for _, v := range q[key] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Msg: fmt.Sprintf("%s must be an integer", name)}
	}
	return n, nil
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ValidationError{Msg: fmt.Sprintf("%s must be a boolean", name)}
	}
	return b, nil
}

// unquote undoes a second round of percent-encoding some clients apply.
func unquote(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// check runs struct validation and turns the first failure into a
// ValidationError naming the query parameter.
func check(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Msg: err.Error()}
	}

	fe := verrs[0]
	name := strings.SplitN(fe.Field(), "[", 2)[0]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Msg: fmt.Sprintf("%s is required", name)}
	case "min":
		if fe.Kind() == reflect.Slice {
			return &ValidationError{Msg: fmt.Sprintf("%s needs at least %s value(s)", name, fe.Param())}
		}
		return &ValidationError{Msg: fmt.Sprintf("%s must be at least %s", name, fe.Param())}
	case "max":
		return &ValidationError{Msg: fmt.Sprintf("%s must be at most %s", name, fe.Param())}
	}
	return &ValidationError{Msg: fmt.Sprintf("%s is invalid", name)}
}
