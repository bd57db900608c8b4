// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Scraping backends.
const (
	BackendJobSpy = "jobspy"
	BackendAdzuna = "adzuna"
)

// Storage backends.
const (
	StorageS3    = "s3"
	StorageLocal = "local"
)

// Config holds all runtime configuration for the scraper service.
type Config struct {
	Port     string `validate:"required,numeric"`
	GRPCPort string `validate:"omitempty,numeric"`
	LogLevel string `validate:"omitempty,oneof=trace debug info warn error"`
	LogFile  string

	StorageBackend     string `validate:"oneof=s3 local"`
	LocalStorageRoot   string `validate:"required_if=StorageBackend local"`
	AWSAccessKeyID     string `validate:"required_if=StorageBackend s3"`
	AWSSecretAccessKey string `validate:"required_if=StorageBackend s3"`
	AWSRegion          string `validate:"required_if=StorageBackend s3"`
	S3Bucket           string `validate:"required_if=StorageBackend s3"`
	S3Endpoint         string `validate:"omitempty,url"`
	S3MaxAttempts      int    `validate:"min=1,max=10"`

	GeoapifyAPIKey string `validate:"required"`

	EnterpriseURL      string `validate:"required,url"`
	EnterpriseAPIKey   string `validate:"required"`
	ForwardToIngestion bool

	DatabaseURL     string `validate:"required"`
	AutomationTable string `validate:"required"`
	RedisURL        string

	ScraperBackend      string `validate:"oneof=jobspy adzuna"`
	ScraperURL          string `validate:"required_if=ScraperBackend jobspy"`
	ScraperAPIKey       string
	AdzunaAppID         string `validate:"required_if=ScraperBackend adzuna"`
	AdzunaAppKey        string `validate:"required_if=ScraperBackend adzuna"`
	AdzunaCountry       string
	ScrapeRatePerMinute int `validate:"min=1"`

	ScrapeIntervalHours int `validate:"min=1"` // How often the cron jobs fire
	CitiesFile          string
	TargetsFile         string
	Targets             Targets
}

// Load reads environment variables (after an optional .env file) and returns
// a validated Config. A missing .env is fine; an unreadable or malformed one
// is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	intEnv := func(key string, def int) int {
		s := os.Getenv(key)
		if s == "" {
			return def
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer, got %q", key, s))
			return def
		}
		return v
	}
	boolEnv := func(key string, def bool) bool {
		s := os.Getenv(key)
		if s == "" {
			return def
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a boolean, got %q", key, s))
			return def
		}
		return v
	}

	cfg := &Config{
		Port:     envOr("SCRAPER_PORT", "8000"),
		GRPCPort: os.Getenv("SCRAPER_GRPC_PORT"),
		LogLevel: strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFile:  os.Getenv("LOG_FILE"),

		StorageBackend:     strings.ToLower(envOr("STORAGE_BACKEND", StorageS3)),
		LocalStorageRoot:   os.Getenv("LOCAL_STORAGE_ROOT"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		S3Bucket:           os.Getenv("S3_BUCKET_NAME"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3MaxAttempts:      intEnv("S3_MAX_ATTEMPTS", 3),

		GeoapifyAPIKey: os.Getenv("PUBLIC_GEOAPIFY_API_KEY"),

		EnterpriseURL:      strings.TrimRight(os.Getenv("ENTERPRISE_URL"), "/"),
		EnterpriseAPIKey:   os.Getenv("ENTERPRISE_API_KEY"),
		ForwardToIngestion: boolEnv("FORWARD_TO_INGESTION", true),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AutomationTable: envOr("AUTOMATION_TABLE", "automations"),
		RedisURL:        os.Getenv("REDIS_URL"),

		ScraperBackend:      strings.ToLower(envOr("SCRAPER_BACKEND", BackendJobSpy)),
		ScraperURL:          strings.TrimRight(os.Getenv("SCRAPER_URL"), "/"),
		ScraperAPIKey:       os.Getenv("SCRAPER_API_KEY"),
		AdzunaAppID:         os.Getenv("ADZUNA_APP_ID"),
		AdzunaAppKey:        os.Getenv("ADZUNA_APP_KEY"),
		AdzunaCountry:       envOr("ADZUNA_COUNTRY", "us"),
		ScrapeRatePerMinute: intEnv("SCRAPE_RATE_PER_MINUTE", 30),

		ScrapeIntervalHours: intEnv("SCRAPE_INTERVAL_HOURS", 24),
		CitiesFile:          envOr("CITIES_FILE", "data/cities.csv"),
		TargetsFile:         os.Getenv("SCRAPE_TARGETS_FILE"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	targets, err := LoadTargets(cfg.CitiesFile, cfg.TargetsFile)
	if err != nil {
		return nil, err
	}
	cfg.Targets = targets

	return cfg, nil
}

// envNames maps struct fields back to the variables they come from, so
// validation errors name something an operator can set.
var envNames = map[string]string{
	"Port":                "SCRAPER_PORT",
	"GRPCPort":            "SCRAPER_GRPC_PORT",
	"LogLevel":            "LOG_LEVEL",
	"StorageBackend":      "STORAGE_BACKEND",
	"LocalStorageRoot":    "LOCAL_STORAGE_ROOT",
	"AWSAccessKeyID":      "AWS_ACCESS_KEY_ID",
	"AWSSecretAccessKey":  "AWS_SECRET_ACCESS_KEY",
	"AWSRegion":           "AWS_REGION",
	"S3Bucket":            "S3_BUCKET_NAME",
	"S3Endpoint":          "S3_ENDPOINT",
	"S3MaxAttempts":       "S3_MAX_ATTEMPTS",
	"GeoapifyAPIKey":      "PUBLIC_GEOAPIFY_API_KEY",
	"EnterpriseURL":       "ENTERPRISE_URL",
	"EnterpriseAPIKey":    "ENTERPRISE_API_KEY",
	"DatabaseURL":         "DATABASE_URL",
	"AutomationTable":     "AUTOMATION_TABLE",
	"ScraperBackend":      "SCRAPER_BACKEND",
	"ScraperURL":          "SCRAPER_URL",
	"AdzunaAppID":         "ADZUNA_APP_ID",
	"AdzunaAppKey":        "ADZUNA_APP_KEY",
	"ScrapeRatePerMinute": "SCRAPE_RATE_PER_MINUTE",
	"ScrapeIntervalHours": "SCRAPE_INTERVAL_HOURS",
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Errorf("%s is required", name))
		default:
			msgs = append(msgs, fmt.Errorf("%s is invalid (%s %s), got %q", name, fe.Tag(), fe.Param(), fmt.Sprint(fe.Value())))
		}
	}
	return errors.Join(msgs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
