package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultRoles are scraped for every city unless the targets file says
// otherwise.
var DefaultRoles = []string{
	"data scientist",
	"data analyst",
	"machine learning engineer",
	"data engineer",
	"AI researcher",
}

// Targets describes what the scheduled scrape sweeps over and with which
// limits.
type Targets struct {
	Cities        []string `toml:"cities"`
	Roles         []string `toml:"roles"`
	Sites         []string `toml:"sites"`
	ResultsWanted int      `toml:"results_wanted"`
	HoursOld      int      `toml:"hours_old"`
	Country       string   `toml:"country"`
}

func defaultTargets() Targets {
	return Targets{
		Roles:         append([]string(nil), DefaultRoles...),
		Sites:         []string{"indeed"},
		ResultsWanted: 20,
		HoursOld:      24,
		Country:       "USA",
	}
}

// LoadTargets reads cities from citiesFile and applies overrides from the
// optional TOML targetsFile. A missing cities file is not an error: the
// scheduled scrape simply has nothing to do, unless the TOML file lists
// cities itself.
func LoadTargets(citiesFile, targetsFile string) (Targets, error) {
	t := defaultTargets()

	if citiesFile != "" {
		cities, err := ReadCities(citiesFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return t, err
		default:
			t.Cities = cities
		}
	}

	if targetsFile == "" {
		return t, nil
	}
	data, err := os.ReadFile(targetsFile)
	if err != nil {
		return t, fmt.Errorf("read targets file: %w", err)
	}
	var override Targets
	if err := toml.Unmarshal(data, &override); err != nil {
		return t, fmt.Errorf("parse targets file %s: %w", targetsFile, err)
	}

	if len(override.Cities) > 0 {
		t.Cities = override.Cities
	}
	if len(override.Roles) > 0 {
		t.Roles = override.Roles
	}
	if len(override.Sites) > 0 {
		t.Sites = override.Sites
	}
	if override.ResultsWanted > 0 {
		t.ResultsWanted = override.ResultsWanted
	}
	if override.HoursOld > 0 {
		t.HoursOld = override.HoursOld
	}
	if override.Country != "" {
		t.Country = override.Country
	}
	return t, nil
}

// ReadCities parses a CSV file with City and State columns into
// "City, State" strings.
func ReadCities(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cities file: %w", err)
	}
	defer f.Close()
	return parseCities(f)
}

func parseCities(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read cities header: %w", err)
	}
	cityCol, stateCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "city":
			cityCol = i
		case "state":
			stateCol = i
		}
	}
	if cityCol < 0 || stateCol < 0 {
		return nil, fmt.Errorf("cities file must have City and State columns, got %v", header)
	}

	var cities []string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cities row: %w", err)
		}
		city := strings.TrimSpace(row[cityCol])
		state := strings.TrimSpace(row[stateCol])
		if city == "" {
			continue
		}
		cities = append(cities, fmt.Sprintf("%s, %s", city, state))
	}
	return cities, nil
}
