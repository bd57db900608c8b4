// Package scheduler runs the service's periodic jobs (the scrape sweep and
// the matcher sweep) on robfig/cron. Each job fires once at Start and then
// every interval; a run that is still going when the next tick arrives causes
// that tick to be skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/logging"
)

// DefaultLockTTL is the run-lock lease. The holder renews it while the job
// runs, so it only bounds how long a crashed replica blocks the others.
const DefaultLockTTL = 2 * time.Minute

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

type entry struct {
	name string
	job  cron.Job // wrapped with Recover and SkipIfStillRunning
}

// Scheduler wraps robfig/cron and the registered jobs.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	locker   Locker // nil when running as a single replica
	lockTTL  time.Duration
	logger   arbor.ILogger

	mu      sync.Mutex
	jobs    map[string]*entry
	order   []string
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // immediate runs fired by Start
}

// New creates a Scheduler firing every interval. locker may be nil.
func New(interval time.Duration, locker Locker, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(logging.CronLogger{Logger: logger})),
		interval: interval,
		locker:   locker,
		lockTTL:  DefaultLockTTL,
		logger:   logger,
		jobs:     make(map[string]*entry),
		ctx:      context.Background(),
	}
}

// Register adds a named job. It must be called before Start.
func (s *Scheduler) Register(name string, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl := logging.CronLogger{Logger: s.logger.WithCorrelationId(name)}
	chain := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))
	s.jobs[name] = &entry{
		name: name,
		job:  chain.Then(cron.FuncJob(func() { s.run(name, fn) })),
	}
	s.order = append(s.order, name)
}

// Start schedules every registered job and fires each once immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.interval < time.Second {
		return fmt.Errorf("scheduler interval %s is below one second", s.interval)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		s.cron.Schedule(cron.Every(s.interval), s.jobs[name].job)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("interval", s.interval.String()).Strs("jobs", s.order).Msg("Scheduler started")

	for _, name := range s.order {
		job := s.jobs[name].job
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			job.Run()
		}()
	}
	return nil
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runNow fires the named job synchronously through the same chain as the
// cron ticks, so it is skipped while a run is in progress.
func (s *Scheduler) runNow(name string) bool {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.job.Run()
	return true
}

// Stop cancels the run context, stops cron, and waits up to timeout for
// in-flight runs to return.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scheduler: runs still in flight after %s", timeout)
	}
}

// run executes one job invocation under a fresh run id and, when configured,
// the cross-replica lock.
func (s *Scheduler) run(name string, fn JobFunc) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	runID := uuid.NewString()
	logger := s.logger.WithCorrelationId(runID)

	if s.locker != nil {
		release, ok, err := s.locker.Acquire(ctx, lockKey(name), s.lockTTL)
		if err != nil {
			logger.Error().Err(err).Str("job", name).Msg("Failed to acquire run lock, skipping")
			return
		}
		if !ok {
			logger.Info().Str("job", name).Msg("Run lock held by another replica, skipping")
			return
		}
		defer release()
	}

	start := time.Now()
	logger.Info().Str("job", name).Msg("Job started")

	if err := fn(ctx); err != nil {
		logger.Error().Err(err).Str("job", name).Str("elapsed", time.Since(start).String()).Msg("Job failed")
		return
	}
	logger.Info().Str("job", name).Str("elapsed", time.Since(start).String()).Msg("Job complete")
}

func lockKey(name string) string { return "scraper-service:lock:" + name }
