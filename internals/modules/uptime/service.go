package uptime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/scheduler"
	"uptimer/pkg/apperror"
	"uptimer/pkg/rabbitmq"
	"uptimer/pkg/redisstore"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	sslJobPrefix     = "ssl:"
	refreshJobPrefix = "refresh:"

	uptimeWindow    = 24 * time.Hour
	recentBeats     = 16
	defaultHours    = 24
	refreshDeadline = 10 * time.Second
)

var errSchedulingAborted = &apperror.Error{
	Kind:    apperror.RequestTimeout,
	Message: "initial scheduling aborted",
}

// notFound rewrites a store miss with the caller's op and a message naming the resource.
func notFound(err error, op, format string, args ...any) error {
	var appErr *apperror.Error
	if !apperror.IsKind(err, apperror.NotFound) || !errors.As(err, &appErr) {
		return err
	}
	return appErr.WithOp(op).WithMessage(fmt.Sprintf(format, args...))
}

type Store interface {
	GetMonitor(ctx context.Context, id int) (monitor.Monitor, error)
	ListActiveMonitors(ctx context.Context) ([]monitor.Monitor, error)
	ListUserActiveMonitors(ctx context.Context, userID int) ([]monitor.Monitor, error)
	DeleteMonitor(ctx context.Context, id int) error
	GetSSLMonitor(ctx context.Context, id int) (monitor.SSLMonitor, error)
	ListActiveSSLMonitors(ctx context.Context) ([]monitor.SSLMonitor, error)
	QueryHeartbeats(ctx context.Context, t monitor.Type, monitorID int, since time.Time) ([]heartbeat.Heartbeat, error)
	LatestHeartbeats(ctx context.Context, t monitor.Type, monitorID int, limit int) ([]heartbeat.Heartbeat, error)
}

// Runner executes ticks. Satisfied by *executor.Executor.
type Runner interface {
	Run(ctx context.Context, t monitor.Type, monitorID int)
	Forget(t monitor.Type, monitorID int)
}

// Jobs is the named job registry. Satisfied by *scheduler.Scheduler.
type Jobs interface {
	StartSingleJob(name, timezone string, seconds int, fn func()) (bool, error)
	StopSingleBackgroundJob(name string, monitorID int)
}

type StatusCache interface {
	GetStatus(ctx context.Context, monitorID int) (redisstore.CachedStatus, bool, error)
	DelStatus(ctx context.Context, monitorID int) error
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type Options struct {
	Timezone        string
	JitterMin       time.Duration
	JitterMax       time.Duration
	RefreshInterval int // seconds
}

type Service struct {
	ctx     context.Context // parent of every scheduled tick
	store   Store
	runner  Runner
	jobs    Jobs
	cache   StatusCache // optional
	refresh Publisher   // optional
	opts    Options
	now     func() time.Time
	logger  *zerolog.Logger
}

func NewService(ctx context.Context, store Store, runner Runner, jobs Jobs, cache StatusCache, refresh Publisher, opts Options, logger *zerolog.Logger) *Service {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10
	}
	return &Service{
		ctx:     ctx,
		store:   store,
		runner:  runner,
		jobs:    jobs,
		cache:   cache,
		refresh: refresh,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// StartAll schedules every active monitor and then every active SSL monitor,
// sleeping a jittered delay between schedule operations.
func (s *Service) StartAll(ctx context.Context) (int, error) {
	const op string = "service.uptime.start_all"

	monitors, err := s.store.ListActiveMonitors(ctx)
	if err != nil {
		return 0, err
	}
	sslMonitors, err := s.store.ListActiveSSLMonitors(ctx)
	if err != nil {
		return 0, err
	}

	started := 0
	for _, m := range monitors {
		if err := scheduler.Sleep(ctx, scheduler.Jitter(s.opts.JitterMin, s.opts.JitterMax)); err != nil {
			return started, errSchedulingAborted.WithOp(op).WithErr(err)
		}
		if ok, err := s.schedule(m); err != nil {
			s.logger.Error().Err(err).Int("monitor_id", m.ID).Msg("failed to schedule monitor")
		} else if ok {
			started++
		}
	}
	for _, m := range sslMonitors {
		if err := scheduler.Sleep(ctx, scheduler.Jitter(s.opts.JitterMin, s.opts.JitterMax)); err != nil {
			return started, errSchedulingAborted.WithOp(op).WithErr(err)
		}
		if ok, err := s.scheduleSSL(m); err != nil {
			s.logger.Error().Err(err).Int("monitor_id", m.ID).Msg("failed to schedule ssl monitor")
		} else if ok {
			started++
		}
	}

	s.logger.Info().Int("jobs", started).Msg("active monitors scheduled")
	return started, nil
}

func (s *Service) schedule(m monitor.Monitor) (bool, error) {
	id, typ := m.ID, m.Type
	return s.jobs.StartSingleJob(m.Name, s.opts.Timezone, m.Frequency, func() {
		s.runner.Run(s.ctx, typ, id)
	})
}

func (s *Service) scheduleSSL(m monitor.SSLMonitor) (bool, error) {
	id := m.ID
	return s.jobs.StartSingleJob(sslJobPrefix+m.Name, s.opts.Timezone, m.Frequency, func() {
		s.runner.Run(s.ctx, monitor.SSL, id)
	})
}

func (s *Service) StartCreatedMonitor(ctx context.Context, id int) error {
	const op string = "service.uptime.start_monitor"

	m, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		return notFound(err, op, "monitor %d not found", id)
	}
	if !m.Active {
		s.logger.Debug().Int("monitor_id", id).Msg("monitor inactive, not scheduled")
		return nil
	}
	_, err = s.schedule(m)
	return err
}

// ResumeMonitor starts a fresh incident history for the monitor and schedules it.
func (s *Service) ResumeMonitor(ctx context.Context, id int) error {
	s.forget(id)
	return s.StartCreatedMonitor(ctx, id)
}

// StopMonitor unschedules the job called name. An empty name is looked up by id.
func (s *Service) StopMonitor(ctx context.Context, name string, id int) error {
	const op string = "service.uptime.stop_monitor"

	if name == "" && id > 0 {
		m, err := s.store.GetMonitor(ctx, id)
		if err != nil {
			return notFound(err, op, "monitor %d not found", id)
		}
		name = m.Name
	}
	if name == "" {
		return apperror.Newf(apperror.InvalidInput, op, "monitor name or id is required")
	}

	s.jobs.StopSingleBackgroundJob(name, id)
	if id > 0 {
		s.forget(id)
	}
	return nil
}

func (s *Service) forget(id int) {
	for _, t := range monitor.Types {
		if t.HasHeartbeats() {
			s.runner.Forget(t, id)
		}
	}
}

// DeleteMonitor stops the job and removes the monitor together with its heartbeats.
func (s *Service) DeleteMonitor(ctx context.Context, id int) error {
	const op string = "service.uptime.delete_monitor"

	m, err := s.store.GetMonitor(ctx, id)
	if err != nil {
		return notFound(err, op, "monitor %d not found", id)
	}

	s.jobs.StopSingleBackgroundJob(m.Name, m.ID)
	s.runner.Forget(m.Type, m.ID)

	if err := s.store.DeleteMonitor(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.DelStatus(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int("monitor_id", id).Msg("failed to drop cached status")
		}
	}
	return nil
}

func (s *Service) StartSSLMonitor(ctx context.Context, id int) error {
	const op string = "service.uptime.start_ssl_monitor"

	m, err := s.store.GetSSLMonitor(ctx, id)
	if err != nil {
		return notFound(err, op, "ssl monitor %d not found", id)
	}
	if !m.Active {
		s.logger.Debug().Int("monitor_id", id).Msg("ssl monitor inactive, not scheduled")
		return nil
	}
	_, err = s.scheduleSSL(m)
	return err
}

func (s *Service) ResumeSSLMonitor(ctx context.Context, id int) error {
	s.runner.Forget(monitor.SSL, id)
	return s.StartSSLMonitor(ctx, id)
}

func (s *Service) StopSSLMonitor(ctx context.Context, name string, id int) error {
	const op string = "service.uptime.stop_ssl_monitor"

	if name == "" && id > 0 {
		m, err := s.store.GetSSLMonitor(ctx, id)
		if err != nil {
			return notFound(err, op, "ssl monitor %d not found", id)
		}
		name = m.Name
	}
	if name == "" {
		return apperror.Newf(apperror.InvalidInput, op, "ssl monitor name or id is required")
	}

	s.jobs.StopSingleBackgroundJob(sslJobPrefix+name, id)
	if id > 0 {
		s.runner.Forget(monitor.SSL, id)
	}
	return nil
}

// GetHeartbeats returns the last hours of heartbeats, newest first.
func (s *Service) GetHeartbeats(ctx context.Context, t monitor.Type, monitorID int, hours int) ([]heartbeat.Heartbeat, error) {
	const op string = "service.uptime.get_heartbeats"

	if !t.HasHeartbeats() {
		return nil, apperror.Newf(apperror.InvalidInput, op, "monitor type %q has no heartbeats", t)
	}
	if hours <= 0 {
		hours = defaultHours
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	return s.store.QueryHeartbeats(ctx, t, monitorID, since)
}

func (s *Service) UptimePercentage(beats []heartbeat.Heartbeat) int {
	return heartbeat.UptimePercentage(beats)
}

// UserActiveMonitors returns the user's active monitors with their 24h uptime and newest heartbeats.
func (s *Service) UserActiveMonitors(ctx context.Context, userID int) ([]MonitorSummary, error) {
	monitors, err := s.store.ListUserActiveMonitors(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]MonitorSummary, len(monitors))
	since := s.now().Add(-uptimeWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, m := range monitors {
		g.Go(func() error {
			window, err := s.store.QueryHeartbeats(gctx, m.Type, m.ID, since)
			if err != nil {
				return err
			}
			recent, err := s.store.LatestHeartbeats(gctx, m.Type, m.ID, recentBeats)
			if err != nil {
				return err
			}
			out[i] = newSummary(m, heartbeat.UptimePercentage(window), recent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnableAutoRefresh publishes the user's monitors on the refresh routing key every refresh interval.
func (s *Service) EnableAutoRefresh(userID int, username string) (bool, error) {
	const op string = "service.uptime.enable_refresh"

	if s.refresh == nil {
		return false, apperror.Newf(apperror.Unavailable, op, "auto refresh needs rabbitmq")
	}
	if strings.TrimSpace(username) == "" {
		return false, apperror.Newf(apperror.InvalidInput, op, "username is required")
	}

	return s.jobs.StartSingleJob(refreshJobName(username), s.opts.Timezone, s.opts.RefreshInterval, func() {
		s.publishRefresh(userID, username)
	})
}

func (s *Service) DisableAutoRefresh(username string) {
	s.jobs.StopSingleBackgroundJob(refreshJobName(username), 0)
}

func refreshJobName(username string) string {
	return refreshJobPrefix + strings.ToLower(strings.TrimSpace(username))
}

func (s *Service) publishRefresh(userID int, username string) {
	ctx, cancel := context.WithTimeout(s.ctx, refreshDeadline)
	defer cancel()

	monitors, err := s.UserActiveMonitors(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("failed to load monitors for refresh")
		return
	}
	err = s.refresh.Publish(ctx, rabbitmq.EventMonitorRefresh, RefreshPayload{
		UserID:   userID,
		Username: username,
		Monitors: monitors,
	})
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("failed to publish monitor refresh")
	}
}

// LatestStatus reads the cached result of the last completed tick.
func (s *Service) LatestStatus(ctx context.Context, monitorID int) (redisstore.CachedStatus, error) {
	const op string = "service.uptime.latest_status"

	if s.cache == nil {
		return redisstore.CachedStatus{}, apperror.Newf(apperror.Unavailable, op, "status cache is disabled")
	}
	st, ok, err := s.cache.GetStatus(ctx, monitorID)
	if err != nil {
		return redisstore.CachedStatus{}, apperror.New(apperror.Dependency, op, err)
	}
	if !ok {
		return redisstore.CachedStatus{}, apperror.Newf(apperror.NotFound, op, "no status recorded for monitor %d", monitorID)
	}
	return st, nil
}
