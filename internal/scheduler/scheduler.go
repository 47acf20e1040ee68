package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CashNudge/internal/model"
	"CashNudge/internal/recorder"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BatchRunner evaluates every active user at the given instant.
type BatchRunner interface {
	Run(ctx context.Context, now time.Time) (model.BatchResult, error)
}

// Scheduler manages the nightly cash check trigger.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   BatchRunner
	Recorder recorder.Recorder
	Now      func() time.Time
	Ctx      context.Context

	mu  sync.Mutex
	wg  sync.WaitGroup
	log zerolog.Logger
}

// NewScheduler creates a Scheduler whose cron expressions are read in loc.
// A nil Recorder disables run history.
func NewScheduler(ctx context.Context, runner BatchRunner, rec recorder.Recorder, loc *time.Location, log zerolog.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Runner:   runner,
		Recorder: rec,
		Now:      func() time.Time { return time.Now().In(loc) },
		Ctx:      ctx,
		log:      log,
	}
}

// Register adds the nightly task.
func (s *Scheduler) Register(nightlyCron string) error {
	if _, err := s.Cron.AddFunc(nightlyCron, s.nightlyTask); err != nil {
		return fmt.Errorf("register nightly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks, including
// ones started by RunAsync, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the nightly task immediately and records the result.
// Overlapping runs are serialized.
func (s *Scheduler) RunNow(ctx context.Context) (model.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.Runner.Run(ctx, s.Now())
	if err != nil {
		return res, fmt.Errorf("nightly run: %w", err)
	}
	if err := s.Recorder.RecordBatchRun(ctx, res); err != nil {
		s.log.Error().Err(err).Msg("record batch run")
	}
	return res, nil
}

// RunAsync starts the nightly task in the background. Stop waits for it.
func (s *Scheduler) RunAsync(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunNow(ctx); err != nil {
			s.log.Error().Err(err).Msg("background cash check aborted")
		}
	}()
}

func (s *Scheduler) nightlyTask() {
	s.log.Info().Msg("running nightly cash check")
	if _, err := s.RunNow(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("nightly cash check aborted")
	}
}
