package rabbitmq

import (
	"encoding/json"

	"uptimer/internals/modules/alert"
)

// Lifecycle events consumed from the API side.
const (
	EventMonitorCreated = "monitor.created"
	EventMonitorResumed = "monitor.resumed"
	EventMonitorStopped = "monitor.stopped"
	EventMonitorDeleted = "monitor.deleted"
	EventSSLCreated     = "ssl.created"
	EventSSLResumed     = "ssl.resumed"
	EventSSLStopped     = "ssl.stopped"
)

// Events published by the engine.
const (
	EventAlertEmail     = "alert.email"
	EventMonitorRefresh = "monitor.refresh"
)

type EventPayload struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type MonitorRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

type EmailPayload struct {
	To       string         `json:"to"`
	Template alert.Template `json:"template"`
	Locals   alert.Locals   `json:"locals"`
}
