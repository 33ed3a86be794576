package uptime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/pkg/apperror"
	"uptimer/pkg/rabbitmq"
	"uptimer/pkg/redisstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	monitors map[int]monitor.Monitor
	ssl      map[int]monitor.SSLMonitor
	beats    map[int][]heartbeat.Heartbeat // newest first
	deleted  []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		monitors: map[int]monitor.Monitor{},
		ssl:      map[int]monitor.SSLMonitor{},
		beats:    map[int][]heartbeat.Heartbeat{},
	}
}

func errMissing() error {
	return apperror.Newf(apperror.NotFound, "fake", "resources not found")
}

func (s *fakeStore) GetMonitor(_ context.Context, id int) (monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.monitors[id]
	if !ok {
		return monitor.Monitor{}, errMissing()
	}
	return m, nil
}

func (s *fakeStore) ListActiveMonitors(context.Context) ([]monitor.Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []monitor.Monitor
	for _, m := range s.monitors {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListUserActiveMonitors(_ context.Context, userID int) ([]monitor.Monitor, error) {
	all, _ := s.ListActiveMonitors(context.Background())
	var out []monitor.Monitor
	for _, m := range all {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteMonitor(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.monitors, id)
	delete(s.beats, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) GetSSLMonitor(_ context.Context, id int) (monitor.SSLMonitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.ssl[id]
	if !ok {
		return monitor.SSLMonitor{}, errMissing()
	}
	return m, nil
}

func (s *fakeStore) ListActiveSSLMonitors(context.Context) ([]monitor.SSLMonitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []monitor.SSLMonitor
	for _, m := range s.ssl {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) QueryHeartbeats(_ context.Context, _ monitor.Type, id int, since time.Time) ([]heartbeat.Heartbeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []heartbeat.Heartbeat
	for _, hb := range s.beats[id] {
		if hb.Timestamp >= since.UnixMilli() {
			out = append(out, hb)
		}
	}
	return out, nil
}

func (s *fakeStore) LatestHeartbeats(_ context.Context, _ monitor.Type, id int, limit int) ([]heartbeat.Heartbeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	beats := s.beats[id]
	if len(beats) > limit {
		beats = beats[:limit]
	}
	return beats, nil
}

type runCall struct {
	t  monitor.Type
	id int
}

type fakeRunner struct {
	mu     sync.Mutex
	runs   []runCall
	forgot []runCall
}

func (r *fakeRunner) Run(_ context.Context, t monitor.Type, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, runCall{t, id})
}

func (r *fakeRunner) Forget(t monitor.Type, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgot = append(r.forgot, runCall{t, id})
}

type job struct {
	seconds int
	fn      func()
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]job
}

func (j *fakeJobs) StartSingleJob(name, _ string, seconds int, fn func()) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := j.jobs[key]; ok {
		return false, nil
	}
	j.jobs[key] = job{seconds, fn}
	return true, nil
}

func (j *fakeJobs) StopSingleBackgroundJob(name string, _ int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.jobs, strings.ToLower(name))
}

func (j *fakeJobs) fire(t *testing.T, name string) {
	t.Helper()
	j.mu.Lock()
	jb, ok := j.jobs[name]
	j.mu.Unlock()
	require.True(t, ok, name)
	jb.fn()
}

type fakeCache struct {
	statuses map[int]redisstore.CachedStatus
	dropped  []int
}

func (c *fakeCache) GetStatus(_ context.Context, id int) (redisstore.CachedStatus, bool, error) {
	st, ok := c.statuses[id]
	return st, ok, nil
}

func (c *fakeCache) DelStatus(_ context.Context, id int) error {
	c.dropped = append(c.dropped, id)
	return nil
}

type published struct {
	eventType string
	payload   any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{eventType, payload})
	return nil
}

type fixture struct {
	store  *fakeStore
	runner *fakeRunner
	jobs   *fakeJobs
	cache  *fakeCache
	pub    *fakePublisher
	svc    *Service
}

func newFixture() *fixture {
	log := zerolog.Nop()
	f := &fixture{
		store:  newFakeStore(),
		runner: &fakeRunner{},
		jobs:   &fakeJobs{jobs: map[string]job{}},
		cache:  &fakeCache{statuses: map[int]redisstore.CachedStatus{}},
		pub:    &fakePublisher{},
	}
	f.svc = NewService(context.Background(), f.store, f.runner, f.jobs, f.cache, f.pub, Options{
		Timezone:        "UTC",
		RefreshInterval: 10,
	}, &log)
	return f
}

func TestStartCreatedMonitorSchedulesOnce(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, Name: "API", Type: monitor.HTTP, Active: true, Frequency: 60}

	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 1))
	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 1))
	assert.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, 60, f.jobs.jobs["api"].seconds)

	f.jobs.fire(t, "api")
	assert.Equal(t, []runCall{{monitor.HTTP, 1}}, f.runner.runs)
}

func TestStartCreatedMonitorSkipsInactive(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, Name: "api", Type: monitor.HTTP}

	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 1))
	assert.Empty(t, f.jobs.jobs)

	err := f.svc.StartCreatedMonitor(context.Background(), 2)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

func TestStopAndResumeMonitor(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, Name: "api", Type: monitor.TCP, Active: true, Frequency: 30}
	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 1))

	// name looked up by id
	require.NoError(t, f.svc.StopMonitor(context.Background(), "", 1))
	assert.Empty(t, f.jobs.jobs)
	assert.Contains(t, f.runner.forgot, runCall{monitor.TCP, 1})

	// stopping twice is a no-op
	require.NoError(t, f.svc.StopMonitor(context.Background(), "api", 1))

	require.NoError(t, f.svc.ResumeMonitor(context.Background(), 1))
	assert.Contains(t, f.jobs.jobs, "api")

	err := f.svc.StopMonitor(context.Background(), "", 0)
	assert.True(t, apperror.IsKind(err, apperror.InvalidInput))
}

func TestDeleteMonitorStopsAndCascades(t *testing.T) {
	f := newFixture()
	f.store.monitors[4] = monitor.Monitor{ID: 4, Name: "db", Type: monitor.Mongo, Active: true}
	f.store.beats[4] = []heartbeat.Heartbeat{{MonitorID: 4}}
	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 4))

	require.NoError(t, f.svc.DeleteMonitor(context.Background(), 4))
	assert.Empty(t, f.jobs.jobs)
	assert.Equal(t, []int{4}, f.store.deleted)
	assert.Equal(t, []int{4}, f.cache.dropped)
	assert.Contains(t, f.runner.forgot, runCall{monitor.Mongo, 4})

	err := f.svc.DeleteMonitor(context.Background(), 4)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

func TestSSLMonitorJobs(t *testing.T) {
	f := newFixture()
	f.store.ssl[9] = monitor.SSLMonitor{ID: 9, Name: "Cert", Active: true, Frequency: 86400}
	f.store.monitors[9] = monitor.Monitor{ID: 9, Name: "cert", Type: monitor.HTTP, Active: true, Frequency: 30}

	require.NoError(t, f.svc.StartSSLMonitor(context.Background(), 9))
	require.NoError(t, f.svc.StartCreatedMonitor(context.Background(), 9))
	assert.Len(t, f.jobs.jobs, 2)

	f.jobs.fire(t, "ssl:cert")
	assert.Equal(t, []runCall{{monitor.SSL, 9}}, f.runner.runs)

	require.NoError(t, f.svc.StopSSLMonitor(context.Background(), "", 9))
	assert.NotContains(t, f.jobs.jobs, "ssl:cert")
	assert.Contains(t, f.jobs.jobs, "cert")

	require.NoError(t, f.svc.ResumeSSLMonitor(context.Background(), 9))
	assert.Contains(t, f.jobs.jobs, "ssl:cert")
}

func TestStartAll(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, Name: "a", Type: monitor.HTTP, Active: true}
	f.store.monitors[2] = monitor.Monitor{ID: 2, Name: "b", Type: monitor.TCP, Active: true}
	f.store.monitors[3] = monitor.Monitor{ID: 3, Name: "c", Type: monitor.TCP}
	f.store.ssl[4] = monitor.SSLMonitor{ID: 4, Name: "d", Active: true}
	f.svc.opts.JitterMin, f.svc.opts.JitterMax = time.Millisecond, 2*time.Millisecond

	n, err := f.svc.StartAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, f.jobs.jobs, "ssl:d")

	// second pass adds nothing
	n, err = f.svc.StartAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartAllStopsOnCancel(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, Name: "a", Type: monitor.HTTP, Active: true}
	f.svc.opts.JitterMin, f.svc.opts.JitterMax = time.Second, time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.StartAll(ctx)
	assert.True(t, apperror.IsKind(err, apperror.RequestTimeout))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.jobs.jobs)
}

func TestMissingMonitorErrorsNameTheResource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		op   string
		msg  string
	}{
		{"start", func() error { return f.svc.StartCreatedMonitor(ctx, 5) }, "service.uptime.start_monitor", "monitor 5 not found"},
		{"stop", func() error { return f.svc.StopMonitor(ctx, "", 5) }, "service.uptime.stop_monitor", "monitor 5 not found"},
		{"delete", func() error { return f.svc.DeleteMonitor(ctx, 5) }, "service.uptime.delete_monitor", "monitor 5 not found"},
		{"start ssl", func() error { return f.svc.StartSSLMonitor(ctx, 6) }, "service.uptime.start_ssl_monitor", "ssl monitor 6 not found"},
		{"stop ssl", func() error { return f.svc.StopSSLMonitor(ctx, "", 6) }, "service.uptime.stop_ssl_monitor", "ssl monitor 6 not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var appErr *apperror.Error
			require.ErrorAs(t, tc.call(), &appErr)
			assert.Equal(t, apperror.NotFound, appErr.Kind)
			assert.Equal(t, tc.op, appErr.Op)
			assert.Equal(t, tc.msg, appErr.Message)
		})
	}
}

func TestGetHeartbeatsWindow(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.store.beats[1] = []heartbeat.Heartbeat{
		{MonitorID: 1, Timestamp: now.Add(-time.Minute).UnixMilli()},
		{MonitorID: 1, Timestamp: now.Add(-2 * time.Hour).UnixMilli(), Status: monitor.StatusDown},
	}

	beats, err := f.svc.GetHeartbeats(context.Background(), monitor.HTTP, 1, 1)
	require.NoError(t, err)
	assert.Len(t, beats, 1)

	beats, err = f.svc.GetHeartbeats(context.Background(), monitor.HTTP, 1, 0)
	require.NoError(t, err)
	assert.Len(t, beats, 2)
	assert.Equal(t, 50, f.svc.UptimePercentage(beats))

	_, err = f.svc.GetHeartbeats(context.Background(), monitor.SSL, 1, 1)
	assert.True(t, apperror.IsKind(err, apperror.InvalidInput))
}

func TestUserActiveMonitors(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.store.monitors[1] = monitor.Monitor{ID: 1, UserID: 5, Name: "a", Type: monitor.HTTP, Active: true}
	f.store.monitors[2] = monitor.Monitor{ID: 2, UserID: 6, Name: "b", Type: monitor.HTTP, Active: true}

	var beats []heartbeat.Heartbeat
	for i := range 20 {
		st := monitor.StatusUp
		if i%4 == 0 {
			st = monitor.StatusDown
		}
		beats = append(beats, heartbeat.Heartbeat{MonitorID: 1, Status: st, Timestamp: now.Add(-time.Duration(i) * time.Minute).UnixMilli()})
	}
	f.store.beats[1] = beats

	out, err := f.svc.UserActiveMonitors(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 75, out[0].Uptime)
	assert.Len(t, out[0].Heartbeats, recentBeats)
}

func TestAutoRefresh(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, UserID: 5, Name: "a", Type: monitor.HTTP, Active: true}

	started, err := f.svc.EnableAutoRefresh(5, "Jane")
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, 10, f.jobs.jobs["refresh:jane"].seconds)

	started, err = f.svc.EnableAutoRefresh(5, "jane")
	require.NoError(t, err)
	assert.False(t, started)

	f.jobs.fire(t, "refresh:jane")
	require.Len(t, f.pub.msgs, 1)
	assert.Equal(t, rabbitmq.EventMonitorRefresh, f.pub.msgs[0].eventType)
	payload := f.pub.msgs[0].payload.(RefreshPayload)
	assert.Equal(t, 5, payload.UserID)
	assert.Len(t, payload.Monitors, 1)

	f.svc.DisableAutoRefresh("JANE")
	assert.Empty(t, f.jobs.jobs)
}

func TestAutoRefreshNeedsPublisher(t *testing.T) {
	log := zerolog.Nop()
	svc := NewService(context.Background(), newFakeStore(), &fakeRunner{}, &fakeJobs{jobs: map[string]job{}}, nil, nil, Options{}, &log)

	_, err := svc.EnableAutoRefresh(1, "jane")
	assert.True(t, apperror.IsKind(err, apperror.Unavailable))

	_, err = svc.LatestStatus(context.Background(), 1)
	assert.True(t, apperror.IsKind(err, apperror.Unavailable))
}

func TestLatestStatus(t *testing.T) {
	f := newFixture()
	f.cache.statuses[3] = redisstore.CachedStatus{MonitorID: 3, Status: monitor.StatusDown, StatusCode: 500}

	st, err := f.svc.LatestStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusDown, st.Status)

	_, err = f.svc.LatestStatus(context.Background(), 4)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

func newTestRouter(f *fixture) chi.Router {
	h := NewHandler(f.svc, validator.New())
	r := chi.NewRouter()
	r.Mount("/monitors", MonitorRoutes(h))
	r.Mount("/ssl", SSLRoutes(h))
	r.Mount("/users", UserRoutes(h))
	return r
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture()
	f.store.monitors[1] = monitor.Monitor{ID: 1, UserID: 5, Name: "api", Type: monitor.HTTP, Active: true}
	f.store.ssl[2] = monitor.SSLMonitor{ID: 2, Name: "cert", Active: true}
	f.store.beats[1] = []heartbeat.Heartbeat{{MonitorID: 1, Timestamp: time.Now().UnixMilli(), Code: 200}}
	f.cache.statuses[1] = redisstore.CachedStatus{MonitorID: 1}
	router := newTestRouter(f)

	cases := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{http.MethodPost, "/monitors/1/resume", "", http.StatusOK, "monitor resumed"},
		{http.MethodPost, "/monitors/1/stop", `{"name":"api"}`, http.StatusOK, "monitor stopped"},
		{http.MethodPost, "/monitors/abc/stop", "", http.StatusBadRequest, "invalid_input"},
		{http.MethodGet, "/monitors/1/heartbeats?type=http&hours=2", "", http.StatusOK, `"uptime":100`},
		{http.MethodGet, "/monitors/1/heartbeats?type=ftp", "", http.StatusBadRequest, "invalid_input"},
		{http.MethodGet, "/monitors/1/heartbeats?type=http&hours=-1", "", http.StatusBadRequest, "hours"},
		{http.MethodGet, "/monitors/1/status", "", http.StatusOK, `"monitorId":1`},
		{http.MethodGet, "/monitors/7/status", "", http.StatusNotFound, "not_found"},
		{http.MethodPost, "/ssl/2/resume", "", http.StatusOK, "ssl monitor resumed"},
		{http.MethodPost, "/ssl/2/stop", "", http.StatusOK, "ssl monitor stopped"},
		{http.MethodGet, "/users/5/monitors", "", http.StatusOK, `"name":"api"`},
		{http.MethodPost, "/users/5/refresh", `{"username":"jane","enable":true}`, http.StatusOK, `"started":true`},
		{http.MethodPost, "/users/5/refresh", `{"username":"jane"}`, http.StatusBadRequest, "invalid_input"},
		{http.MethodPost, "/users/5/refresh", `{"username":"jane","enable":false}`, http.StatusOK, `"enabled":false`},
		{http.MethodDelete, "/monitors/1", "", http.StatusOK, "monitor deleted"},
		{http.MethodDelete, "/monitors/1", "", http.StatusNotFound, "not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}
