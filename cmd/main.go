// jobmate-scraper-service
//
// Scrapes job postings per (city, role) on a schedule, stores one CSV per
// pair per day in object storage, forwards each table to the enterprise
// ingestion endpoint, and periodically asks the enterprise matcher to score
// users' resumes against their automation job titles.
//
// Also serves on-demand search over HTTP (/jobs, /jobs-s3) and, when
// SCRAPER_GRPC_PORT is set, the gRPC health service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/config"
	"jobmate/scraper-service/internal/db"
	"jobmate/scraper-service/internal/events"
	"jobmate/scraper-service/internal/geo"
	"jobmate/scraper-service/internal/grpcserver"
	"jobmate/scraper-service/internal/httpapi"
	"jobmate/scraper-service/internal/logging"
	"jobmate/scraper-service/internal/matcher"
	"jobmate/scraper-service/internal/remote"
	"jobmate/scraper-service/internal/scheduler"
	"jobmate/scraper-service/internal/scraper"
	"jobmate/scraper-service/internal/storage"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fatal(logging.New("info", ""), err, "Config error")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFile)
	logger.Info().Str("version", version).Str("backend", cfg.ScraperBackend).
		Str("storage", cfg.StorageBackend).Int("cities", len(cfg.Targets.Cities)).
		Int("roles", len(cfg.Targets.Roles)).Msg("Starting scraper-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var (
		publisher scraper.Publisher = events.Discard{}
		locker    scheduler.Locker
	)
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		fatal(logger, err, "Redis")
	}
	if rdb != nil {
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb)
		locker = scheduler.NewRedisLock(rdb, logger)
		logger.Info().Msg("Redis connected, run locks and events enabled")
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	var store scraper.ObjectStore
	switch cfg.StorageBackend {
	case config.StorageLocal:
		store = storage.LocalStore{Root: cfg.LocalStorageRoot}
	default:
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			MaxAttempts:     cfg.S3MaxAttempts,
		}, logger)
		if err != nil {
			fatal(logger, err, "S3")
		}
		store = s3Store
	}

	// ── Scraping ─────────────────────────────────────────────────────────────
	var source scraper.Source
	switch cfg.ScraperBackend {
	case config.BackendAdzuna:
		source = scraper.NewAdzunaSource(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry)
	default:
		source = scraper.NewJobSpySource(cfg.ScraperURL, cfg.ScraperAPIKey)
	}
	searcher := scraper.NewSearcher(source, cfg.ScrapeRatePerMinute, logger)

	enterprise := remote.NewClient(cfg.EnterpriseURL, cfg.EnterpriseAPIKey, logger)
	var forwarder scraper.Forwarder
	if cfg.ForwardToIngestion {
		forwarder = enterprise
	}

	orch := scraper.NewOrchestrator(searcher, store, forwarder, publisher, logger)
	matchJob := matcher.NewJob(
		matcher.PostgresOpener(cfg.DatabaseURL, cfg.AutomationTable, logger),
		enterprise,
		logger,
	)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(time.Duration(cfg.ScrapeIntervalHours)*time.Hour, locker, logger)
	sched.Register("scrape", func(ctx context.Context) error {
		t := cfg.Targets
		orch.RunBatch(ctx, t.Cities, t.Roles, scraper.Target{
			ResultsWanted: t.ResultsWanted,
			HoursOld:      t.HoursOld,
			Country:       t.Country,
			Sites:         t.Sites,
		})
		return nil
	})
	sched.Register("matcher", func(ctx context.Context) error {
		_, err := matchJob.Run(ctx)
		return err
	})
	if err := sched.Start(ctx); err != nil {
		fatal(logger, err, "Scheduler")
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	api := httpapi.NewServer(searcher, store, geo.NewGeoapify(cfg.GeoapifyAPIKey), logger, version)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 6 * time.Minute, // a /jobs-s3 request scrapes several roles
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, err, "HTTP server error")
		}
	}()

	// ── gRPC health (optional) ───────────────────────────────────────────────
	var grpcSrv *grpcserver.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
		if err != nil {
			fatal(logger, err, "gRPC listen")
		}
		grpcSrv = grpcserver.New(logger)
		go func() {
			logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health listening")
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error().Err(err).Msg("gRPC server error")
			}
		}()
		go grpcSrv.Track(ctx, sched.Running, 5*time.Second)
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	if grpcSrv != nil {
		grpcSrv.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown error")
	}

	cancel()
	if err := sched.Stop(30 * time.Second); err != nil {
		logger.Warn().Err(err).Msg("Scheduler stop")
	}
	logger.Info().Msg("Stopped")
}

func fatal(logger arbor.ILogger, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
