package sqlitestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	log := zerolog.Nop()
	s, err := Open(MemoryPath, &log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMonitorLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	m, err := s.SaveMonitor(ctx, monitor.Monitor{
		UserID: 1, Name: "api", Type: monitor.HTTP, Active: true, URL: "https://x.io",
		AlertThreshold: 2, StatusCode: "[200]",
	})
	require.NoError(t, err)
	require.NotZero(t, m.ID)

	got, err := s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "api", got.Name)
	assert.Equal(t, monitor.HTTP, got.Type)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "[200]", got.StatusCode)
	assert.True(t, got.LastChanged.IsZero())

	changed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateMonitorStatus(ctx, m.ID, monitor.StatusDown, &changed))
	require.NoError(t, s.UpdateMonitorStatus(ctx, m.ID, monitor.StatusDown, nil))

	got, err = s.GetMonitor(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, monitor.StatusDown, got.Status)
	assert.True(t, changed.Equal(got.LastChanged))

	_, err = s.GetMonitor(ctx, 999)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

func TestListActiveMonitors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, m := range []monitor.Monitor{
		{UserID: 1, Name: "a", Type: monitor.HTTP, Active: true, URL: "u"},
		{UserID: 1, Name: "b", Type: monitor.TCP, Active: false, URL: "u"},
		{UserID: 2, Name: "c", Type: monitor.Redis, Active: true, URL: "u"},
	} {
		_, err := s.SaveMonitor(ctx, m)
		require.NoError(t, err)
	}

	all, err := s.ListActiveMonitors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListUserActiveMonitors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].Name)
}

func TestHeartbeatsNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UnixMilli()
	for i := range 5 {
		require.NoError(t, s.AppendHeartbeat(ctx, monitor.TCP, heartbeat.Heartbeat{
			MonitorID: 3, Status: monitor.StatusUp, Code: 200, Timestamp: base + int64(i)*1000, Connection: "established",
		}))
	}
	require.NoError(t, s.AppendHeartbeat(ctx, monitor.HTTP, heartbeat.Heartbeat{MonitorID: 3, Timestamp: base}))

	beats, err := s.QueryHeartbeats(ctx, monitor.TCP, 3, time.UnixMilli(base+2000))
	require.NoError(t, err)
	require.Len(t, beats, 3)
	assert.Equal(t, base+4000, beats[0].Timestamp)
	assert.Equal(t, base+2000, beats[2].Timestamp)
	assert.Equal(t, "established", beats[0].Connection)

	latest, err := s.LatestHeartbeats(ctx, monitor.TCP, 3, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, base+4000, latest[0].Timestamp)

	_, err = s.QueryHeartbeats(ctx, monitor.SSL, 3, time.Time{})
	assert.True(t, apperror.IsKind(err, apperror.InvalidInput))
}

func TestDeleteMonitorCascades(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	m, err := s.SaveMonitor(ctx, monitor.Monitor{UserID: 1, Name: "r", Type: monitor.Redis, Active: true, URL: "redis://x"})
	require.NoError(t, err)
	require.NoError(t, s.AppendHeartbeat(ctx, monitor.Redis, heartbeat.Heartbeat{MonitorID: m.ID, Timestamp: 1}))

	require.NoError(t, s.DeleteMonitor(ctx, m.ID))

	beats, err := s.LatestHeartbeats(ctx, monitor.Redis, m.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, beats)

	err = s.DeleteMonitor(ctx, m.ID)
	assert.True(t, apperror.IsKind(err, apperror.NotFound))
}

func TestSSLMonitorAndNotifications(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	g, err := s.SaveNotificationGroup(ctx, monitor.NotificationGroup{UserID: 1, GroupName: "ops", Emails: `["a@x.io"]`})
	require.NoError(t, err)

	sm, err := s.SaveSSLMonitor(ctx, monitor.SSLMonitor{UserID: 1, NotificationID: g.ID, Name: "cert", Active: true, URL: "https://x.io"})
	require.NoError(t, err)
	assert.Equal(t, monitor.DefaultFrequency, sm.Frequency)

	require.NoError(t, s.UpdateSSLInfo(ctx, sm.ID, `{"type":"success"}`))
	got, err := s.GetSSLMonitor(ctx, sm.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"success"}`, got.Info)

	active, err := s.ListActiveSSLMonitors(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	group, err := s.GetNotificationGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, `["a@x.io"]`, group.Emails)
}

func TestSeed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "monitors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
notifications:
  - id: 1
    userId: 7
    name: ops
    emails: [ops@x.io, dev@x.io]
monitors:
  - id: 10
    userId: 7
    notificationId: 1
    name: site
    type: http
    url: https://x.io
    statusCodes: [200, 201]
    contentTypes: [application/json]
    responseTime: 500
    headers:
      X-Key: abc
  - id: 11
    userId: 7
    name: cache
    type: redis
    url: redis://localhost:6379
    alertThreshold: 0
    active: false
  - id: 12
    userId: 7
    name: cert
    type: ssl
    url: https://x.io
  - id: 13
    name: broken
`), 0o600))

	n, err := s.Seed(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	site, err := s.GetMonitor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "[200,201]", site.StatusCode)
	assert.Equal(t, `["application/json"]`, site.ContentType)
	assert.Equal(t, "500", site.ResponseTime)
	assert.Equal(t, `{"X-Key":"abc"}`, site.Headers)
	assert.Equal(t, monitor.DefaultAlertThreshold, site.AlertThreshold)
	assert.True(t, site.Active)

	cache, err := s.GetMonitor(ctx, 11)
	require.NoError(t, err)
	assert.False(t, cache.Active)
	assert.Equal(t, 0, cache.AlertThreshold)

	_, err = s.GetSSLMonitor(ctx, 12)
	require.NoError(t, err)

	g, err := s.GetNotificationGroup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, `["ops@x.io","dev@x.io"]`, g.Emails)

	// reseeding is idempotent
	_, err = s.Seed(ctx, path)
	require.NoError(t, err)
	all, err := s.ListActiveMonitors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSeedMissingFile(t *testing.T) {
	s := newStore(t)

	n, err := s.Seed(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
