// Package geo resolves a free-text city to the country name the scraping
// backend expects.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.geoapify.com"

// ErrNoMatch is returned when the geocoder finds no city for the text.
var ErrNoMatch = errors.New("geo: no matching city")

// Geoapify is a client for the Geoapify geocoding API.
type Geoapify struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewGeoapify(apiKey string) *Geoapify {
	return &Geoapify{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type searchResponse struct {
	Results []struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"results"`
}

// CountryForCity returns the lowercased country name of the best match.
func (g *Geoapify) CountryForCity(ctx context.Context, city string) (string, error) {
	params := url.Values{}
	params.Set("text", city)
	params.Set("type", "city")
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("apiKey", g.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(g.BaseURL, "/")+"/v1/geocode/search?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geoapify request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoapify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoapify: status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("geoapify decode: %w", err)
	}
	if len(out.Results) == 0 || out.Results[0].Country == "" {
		return "", ErrNoMatch
	}
	return strings.ToLower(out.Results[0].Country), nil
}
