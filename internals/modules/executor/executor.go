package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"uptimer/internals/modules/alert"
	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/probe"
	"uptimer/internals/modules/status"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Store interface {
	GetMonitor(ctx context.Context, id int) (monitor.Monitor, error)
	UpdateMonitorStatus(ctx context.Context, id int, st monitor.Status, lastChanged *time.Time) error
	AppendHeartbeat(ctx context.Context, t monitor.Type, hb heartbeat.Heartbeat) error
	GetSSLMonitor(ctx context.Context, id int) (monitor.SSLMonitor, error)
	UpdateSSLInfo(ctx context.Context, id int, info string) error
	GetNotificationGroup(ctx context.Context, id int) (monitor.NotificationGroup, error)
}

type Alerter interface {
	Dispatch(ev alert.AlertEvent) bool
}

type StatusCache interface {
	StoreStatus(ctx context.Context, monitorID int, st monitor.Status, code int, latencyMs int64, checkedAt time.Time) error
}

type CertProber interface {
	Check(ctx context.Context, rawURL string) (probe.SSLInfo, error)
}

// Checker probes one monitor and reports the heartbeat and whether its assertions passed.
type Checker interface {
	Check(ctx context.Context, m monitor.Monitor) (heartbeat.Heartbeat, bool)
}

// Ticker runs one scheduled tick for a monitor.
type Ticker interface {
	Tick(ctx context.Context, monitorID int)
}

type Deps struct {
	Store       Store
	Alerts      Alerter
	Cache       StatusCache // optional
	States      *status.Table
	HTTP        *probe.HTTPProber
	Certs       CertProber
	Locals      alert.Locals
	TickTimeout time.Duration
	Logger      *zerolog.Logger
}

type Executor struct {
	store       Store
	alerts      Alerter
	cache       StatusCache
	states      *status.Table
	certs       CertProber
	locals      alert.Locals
	tickTimeout time.Duration
	now         func() time.Time
	logger      *zerolog.Logger

	httpCheck  Checker
	tcpCheck   Checker
	mongoCheck Checker
	redisCheck Checker
}

func NewExecutor(d Deps) *Executor {
	timeout := d.TickTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	states := d.States
	if states == nil {
		states = status.NewTable()
	}

	return &Executor{
		store:       d.Store,
		alerts:      d.Alerts,
		cache:       d.Cache,
		states:      states,
		certs:       d.Certs,
		locals:      d.Locals,
		tickTimeout: timeout,
		now:         time.Now,
		logger:      d.Logger,
		httpCheck:   httpChecker{prober: d.HTTP},
		tcpCheck:    tcpChecker{},
		mongoCheck:  mongoChecker{},
		redisCheck:  redisChecker{},
	}
}

// For returns the ticker for a protocol.
func (e *Executor) For(t monitor.Type) (Ticker, error) {
	switch t {
	case monitor.HTTP:
		return protocolTicker{e, e.httpCheck}, nil
	case monitor.TCP:
		return protocolTicker{e, e.tcpCheck}, nil
	case monitor.Mongo:
		return protocolTicker{e, e.mongoCheck}, nil
	case monitor.Redis:
		return protocolTicker{e, e.redisCheck}, nil
	case monitor.SSL:
		return sslTicker{e}, nil
	}
	return nil, fmt.Errorf("unsupported monitor type %q", t)
}

// Run executes one isolated tick. Panics are recovered and logged.
func (e *Executor) Run(parent context.Context, t monitor.Type, monitorID int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Int("monitor_id", monitorID).
				Str("monitor_type", string(t)).
				Msg("monitor tick panicked")
		}
	}()

	ticker, err := e.For(t)
	if err != nil {
		e.logger.Error().Err(err).Int("monitor_id", monitorID).Msg("cannot run monitor tick")
		return
	}

	ctx, cancel := context.WithTimeout(parent, e.tickTimeout)
	defer cancel()

	ticker.Tick(ctx, monitorID)
}

// Forget drops the hysteresis state of a monitor.
func (e *Executor) Forget(t monitor.Type, monitorID int) {
	e.states.Delete(status.Key{Type: t, ID: monitorID})
}

type protocolTicker struct {
	e       *Executor
	checker Checker
}

func (p protocolTicker) Tick(ctx context.Context, monitorID int) {
	e := p.e

	m, err := e.store.GetMonitor(ctx, monitorID)
	if err != nil {
		e.logger.Error().Err(err).Int("monitor_id", monitorID).Msg("failed to load monitor")
		return
	}
	if !m.Active {
		e.logger.Debug().Int("monitor_id", m.ID).Msg("monitor inactive, tick skipped")
		return
	}

	hb, ok := p.checker.Check(ctx, m)
	e.record(ctx, m, hb, ok)
}

// record persists the heartbeat and status as an unordered pair, then alerts on a decision.
func (e *Executor) record(ctx context.Context, m monitor.Monitor, hb heartbeat.Heartbeat, ok bool) {
	now := e.now().UTC()

	var d status.Decision
	e.states.Update(status.Key{Type: m.Type, ID: m.ID}, func(st *status.AlertState) {
		d = status.Decide(m.Status, ok, m.AlertThreshold, st)
	})

	hb.MonitorID = m.ID
	hb.Status = d.Status
	hb.Timestamp = now.UnixMilli()

	var lastChanged *time.Time
	if d.Changed {
		lastChanged = &now
	}

	var g errgroup.Group
	g.Go(func() error {
		if err := e.store.AppendHeartbeat(ctx, m.Type, hb); err != nil {
			e.logger.Error().Err(err).Int("monitor_id", m.ID).Msg("failed to append heartbeat")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := e.store.UpdateMonitorStatus(ctx, m.ID, d.Status, lastChanged); err != nil {
			e.logger.Error().Err(err).Int("monitor_id", m.ID).Msg("failed to update monitor status")
			return err
		}
		return nil
	})

	if err := g.Wait(); err == nil && e.cache != nil {
		if err := e.cache.StoreStatus(ctx, m.ID, d.Status, hb.Code, hb.ResponseTime, now); err != nil {
			e.logger.Error().Err(err).Int("monitor_id", m.ID).Msg("failed to store status in redis")
		}
	}

	if d.Alert != status.AlertNone {
		dropped := e.sendAlert(ctx, m.ID, m.Name, m.NotificationID, alert.Template(d.Alert))
		if dropped && d.Alert == status.AlertFailure {
			// unannounced incident, no recovery alert follows
			e.states.Update(status.Key{Type: m.Type, ID: m.ID}, func(st *status.AlertState) {
				st.Suppressed = false
			})
		}
	}

	evt := e.logger.Info()
	if !ok {
		evt = e.logger.Warn()
	}
	evt.Int("monitor_id", m.ID).
		Str("monitor_type", string(m.Type)).
		Str("status", d.Status.String()).
		Int("code", hb.Code).
		Int64("response_time_ms", hb.ResponseTime).
		Msg(hb.Message)
}

// sendAlert queues the alert. It reports true only when the alert queue refused it.
func (e *Executor) sendAlert(ctx context.Context, monitorID int, name string, notificationID int, tmpl alert.Template) bool {
	if notificationID == 0 {
		e.logger.Warn().Int("monitor_id", monitorID).Msg("no notification group, alert skipped")
		return false
	}

	group, err := e.store.GetNotificationGroup(ctx, notificationID)
	if err != nil {
		e.logger.Error().Err(err).Int("monitor_id", monitorID).Msg("failed to load notification group")
		return false
	}

	locals := e.locals
	locals.AppName = name

	queued := e.alerts.Dispatch(alert.AlertEvent{
		MonitorID: monitorID,
		Emails:    group.Emails,
		Template:  tmpl,
		Locals:    locals,
	})
	if !queued {
		e.logger.Error().
			Int("monitor_id", monitorID).
			Str("alert", string(tmpl)).
			Msg("alert queue full, alert dropped")
	}
	return !queued
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
