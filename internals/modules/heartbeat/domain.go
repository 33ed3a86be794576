package heartbeat

import (
	"time"

	"uptimer/internals/modules/monitor"
)

// Heartbeat is one immutable probe result.
type Heartbeat struct {
	ID           int64          `json:"id,omitempty"`
	MonitorID    int            `json:"monitorId"`
	Status       monitor.Status `json:"status"`
	Code         int            `json:"code"`
	Message      string         `json:"message"`
	Timestamp    int64          `json:"timestamp"` // ms, UTC
	ResponseTime int64          `json:"responseTime"`
	Connection   string         `json:"connection,omitempty"`
	ReqHeaders   string         `json:"reqHeaders,omitempty"`
	ResHeaders   string         `json:"resHeaders,omitempty"`
	ReqBody      string         `json:"reqBody,omitempty"`
	ResBody      string         `json:"resBody,omitempty"`
}

func (h Heartbeat) Time() time.Time {
	return time.UnixMilli(h.Timestamp).UTC()
}

func (h Heartbeat) Failed() bool {
	return h.Status == monitor.StatusDown
}
