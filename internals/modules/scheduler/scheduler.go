package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"uptimer/internals/modules/status"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler owns the named recurring jobs and the hysteresis table their ticks share.
type Scheduler struct {
	cron     gocron.Scheduler
	location *time.Location
	states   *status.Table
	logger   *zerolog.Logger

	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

func NewScheduler(timezone string, logger *zerolog.Logger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	opts = append([]gocron.SchedulerOption{
		gocron.WithLocation(loc),
		gocron.WithLogger(cronLogger{logger}),
	}, opts...)

	cron, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		cron:     cron,
		location: loc,
		states:   status.NewTable(),
		logger:   logger,
		jobs:     make(map[string]uuid.UUID),
	}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

func (s *Scheduler) States() *status.Table {
	return s.states
}

func jobKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StartSingleJob registers fn under name unless a job with that name exists.
// It reports whether a new job was created.
func (s *Scheduler) StartSingleJob(name, timezone string, seconds int, fn func()) (bool, error) {
	key := jobKey(name)
	if key == "" {
		return false, errors.New("job name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[key]; ok {
		return false, nil
	}

	iv := IntervalFor(seconds)
	job, err := s.cron.NewJob(
		gocron.CronJob(s.crontab(timezone, iv), true),
		gocron.NewTask(fn),
		gocron.WithName(key),
	)
	if err != nil {
		return false, fmt.Errorf("schedule job %q: %w", key, err)
	}
	s.jobs[key] = job.ID()

	s.logger.Debug().
		Str("job", key).
		Dur("every", iv.Every).
		Msg("cron job started")
	return true, nil
}

func (s *Scheduler) crontab(timezone string, iv Interval) string {
	if timezone == "" {
		return iv.Cron
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		s.logger.Warn().Str("timezone", timezone).Msg("unknown timezone, using scheduler default")
		return iv.Cron
	}
	return "CRON_TZ=" + timezone + " " + iv.Cron
}

// StopSingleBackgroundJob removes the job called name. A missing job is a no-op.
func (s *Scheduler) StopSingleBackgroundJob(name string, monitorID int) {
	key := jobKey(name)

	s.mu.Lock()
	id, ok := s.jobs[key]
	if ok {
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}

	if err := s.cron.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Error().Err(err).Str("job", key).Msg("failed to remove cron job")
	}

	if monitorID > 0 {
		s.logger.Info().Msgf("Stopped cron job for monitor with ID %d and name %s", monitorID, name)
	} else {
		s.logger.Info().Msgf("Stopped cron job for %s", name)
	}
}

func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobKey(name)]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
