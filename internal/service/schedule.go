package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StationData.influxDB/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cron specs, evaluated in Asia/Seoul.
const (
	ForecastSchedule    = "0 */6 * * *"
	ObservationSchedule = "10 * * * *"
)

// Scheduler runs ingest jobs on cron specs in Seoul time. A run that is
// still going when its next slot comes up makes that slot a no-op.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.RWMutex
	ctx context.Context
	ids map[string]cron.EntryID
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(utils.Seoul),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
		ctx:    context.Background(),
		ids:    map[string]cron.EntryID{},
	}
}

// Add registers job under name. The job receives the context passed to Run
// and the fire time truncated to the minute. Failures are logged only.
func (s *Scheduler) Add(name, spec string, job func(ctx context.Context, at time.Time) error) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx := s.context()
		at := s.now().In(utils.Seoul).Truncate(time.Minute)
		if err := job(ctx, at); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("scheduled run failed")
			return
		}
		s.logger.Debug().Str("job", name).Time("at", at).Msg("scheduled run done")
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.ids[name] = id
	return nil
}

// Next returns the first run of job name strictly after t, or the zero time
// when no such job is registered.
func (s *Scheduler) Next(name string, t time.Time) time.Time {
	id, ok := s.ids[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Schedule.Next(t.In(utils.Seoul))
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	for name := range s.ids {
		s.logger.Info().Str("job", name).Time("next_run", s.Next(name, s.now())).Msg("scheduled")
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}
