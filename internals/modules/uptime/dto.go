package uptime

import (
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
)

// MonitorSummary is the dashboard view of one monitor.
type MonitorSummary struct {
	ID          int                   `json:"id"`
	Name        string                `json:"name"`
	Type        monitor.Type          `json:"type"`
	URL         string                `json:"url"`
	Frequency   int                   `json:"frequency"`
	Status      monitor.Status        `json:"status"`
	LastChanged *time.Time            `json:"lastChanged,omitempty"`
	Uptime      int                   `json:"uptime"`
	Heartbeats  []heartbeat.Heartbeat `json:"heartbeats"`
}

func newSummary(m monitor.Monitor, uptime int, recent []heartbeat.Heartbeat) MonitorSummary {
	s := MonitorSummary{
		ID:         m.ID,
		Name:       m.Name,
		Type:       m.Type,
		URL:        m.URL,
		Frequency:  m.Frequency,
		Status:     m.Status,
		Uptime:     uptime,
		Heartbeats: recent,
	}
	if s.Heartbeats == nil {
		s.Heartbeats = []heartbeat.Heartbeat{}
	}
	if !m.LastChanged.IsZero() {
		lc := m.LastChanged
		s.LastChanged = &lc
	}
	return s
}

type RefreshPayload struct {
	UserID   int              `json:"userId"`
	Username string           `json:"username"`
	Monitors []MonitorSummary `json:"monitors"`
}

type HeartbeatsResponse struct {
	MonitorID  int                   `json:"monitorId"`
	Type       monitor.Type          `json:"type"`
	Hours      int                   `json:"hours"`
	Uptime     int                   `json:"uptime"`
	Heartbeats []heartbeat.Heartbeat `json:"heartbeats"`
}

type StopMonitorRequest struct {
	Name string `json:"name"`
}

type RefreshRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Enable   *bool  `json:"enable" validate:"required"`
}

type RefreshResponse struct {
	Username string `json:"username"`
	Enabled  bool   `json:"enabled"`
	Started  bool   `json:"started"`
}
