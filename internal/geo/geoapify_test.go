package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryForCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/geocode/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Toronto, ON", q.Get("text"))
		assert.Equal(t, "city", q.Get("type"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "key", q.Get("apiKey"))
		_, _ = w.Write([]byte(`{"results":[{"country":"Canada","country_code":"ca","city":"Toronto"}]}`))
	}))
	defer srv.Close()

	g := NewGeoapify("key")
	g.BaseURL = srv.URL

	got, err := g.CountryForCity(context.Background(), "Toronto, ON")
	require.NoError(t, err)
	assert.Equal(t, "canada", got)
}

func TestCountryForCity_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	g := NewGeoapify("key")
	g.BaseURL = srv.URL

	_, err := g.CountryForCity(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestCountryForCity_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGeoapify("bad")
	g.BaseURL = srv.URL

	_, err := g.CountryForCity(context.Background(), "Paris")
	assert.ErrorContains(t, err, "401")
}
