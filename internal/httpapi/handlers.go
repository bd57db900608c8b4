package httpapi

import (
	"errors"
	"net/http"

	"jobmate/scraper-service/internal/model"
	"jobmate/scraper-service/internal/scraper"
)

const fallbackCountry = "usa"

type jobsResponse struct {
	TotalJobs int            `json:"total_jobs"`
	Jobs      model.JobBatch `json:"jobs"`
}

type uploadResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
}

// getJobs handles GET /jobs
func (s *Server) getJobs(w http.ResponseWriter, r *http.Request) {
	p, err := parseJobsParams(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}

	batch, err := s.searcher.Search(r.Context(), scraper.Request{
		Role:               p.Role,
		Location:           p.Location,
		HoursOld:           p.Hours,
		ResultsWanted:      p.MaxResultWanted,
		RequiredSkills:     p.RequiredSkills,
		ExcludedTerms:      p.ExcludedTerms,
		Country:            p.Country,
		IncludeDescription: p.IncludeDescription,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("role", p.Role).Str("location", p.Location).Msg("Error fetching jobs")
		jsonError(w, "Failed to fetch jobs.", http.StatusInternalServerError)
		return
	}
	if batch == nil {
		batch = model.JobBatch{}
	}

	jsonOK(w, jobsResponse{TotalJobs: len(batch), Jobs: batch})
}

// getJobsS3 handles GET /jobs-s3
func (s *Server) getJobsS3(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := parseJobsS3Params(r.URL.Query())
	if err != nil {
		writeParamError(w, err)
		return
	}

	country := p.Country
	if country == "" {
		country = s.resolveCountry(r, p.Location)
	}

	all := model.JobBatch{}
	for _, role := range p.Roles {
		batch, err := s.searcher.Search(ctx, scraper.Request{
			Role:               role,
			Location:           p.Location,
			HoursOld:           p.LastHours,
			ResultsWanted:      p.MaxResultWanted,
			RequiredSkills:     p.RequiredSkills,
			ExcludedTerms:      p.ExcludedTerms,
			Country:            country,
			Sites:              p.SiteName,
			IncludeDescription: p.IncludeDescription,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("role", role).Str("location", p.Location).Msg("Error uploading jobs to S3")
			jsonError(w, "Failed to upload jobs to S3.", http.StatusInternalServerError)
			return
		}
		all = append(all, batch...)
	}

	if len(all) == 0 {
		jsonOK(w, uploadResponse{Message: "No jobs found for the given roles.", Success: false})
		return
	}

	key := scraper.AdHocFileName(s.now())
	url, err := s.store.Upload(ctx, all, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Error uploading jobs to S3")
		jsonError(w, "Failed to upload jobs to S3.", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("key", key).Int("jobs", len(all)).Strs("roles", p.Roles).Msg("Ad-hoc jobs uploaded")
	jsonOK(w, uploadResponse{Message: "File successfully uploaded to S3.", Success: true, URL: url})
}

func (s *Server) resolveCountry(r *http.Request, location string) string {
	if s.geo == nil {
		return fallbackCountry
	}
	country, err := s.geo.CountryForCity(r.Context(), location)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", location).Msg("Country lookup failed, using default")
		return fallbackCountry
	}
	return country
}

func writeParamError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		jsonError(w, ve.Msg, http.StatusBadRequest)
		return
	}
	jsonError(w, err.Error(), http.StatusBadRequest)
}
