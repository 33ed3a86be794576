package sqlitestore

import (
	"encoding/json"
	"fmt"
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
)

type monitorRow struct {
	ID             int    `gorm:"primaryKey"`
	UserID         int    `gorm:"not null;index:idx_monitors_user_active"`
	NotificationID int
	Name           string `gorm:"not null"`
	Type           string `gorm:"not null"`
	Active         bool   `gorm:"index:idx_monitors_user_active"`
	Frequency      int
	AlertThreshold int
	Status         int
	LastChanged    *time.Time
	URL            string
	Port           int
	Timeout        int
	Redirects      int
	Method         string
	Headers        string
	Body           string
	AuthMethod     string `gorm:"column:http_auth_method"`
	Username       string `gorm:"column:basic_auth_user"`
	Password       string `gorm:"column:basic_auth_pass"`
	BearerToken    string
	ContentType    string
	StatusCode     string
	ResponseTime   string
	Connection     string
	CreatedAt      time.Time
}

func (monitorRow) TableName() string { return "monitors" }

func (r monitorRow) toDomain() monitor.Monitor {
	m := monitor.Monitor{
		ID:             r.ID,
		UserID:         r.UserID,
		NotificationID: r.NotificationID,
		Name:           r.Name,
		Type:           monitor.Type(r.Type),
		Active:         r.Active,
		Frequency:      r.Frequency,
		AlertThreshold: r.AlertThreshold,
		Status:         monitor.Status(r.Status),
		URL:            r.URL,
		Port:           r.Port,
		Timeout:        r.Timeout,
		Redirects:      r.Redirects,
		Method:         r.Method,
		Headers:        r.Headers,
		Body:           r.Body,
		AuthMethod:     r.AuthMethod,
		Username:       r.Username,
		Password:       r.Password,
		BearerToken:    r.BearerToken,
		ContentType:    r.ContentType,
		StatusCode:     r.StatusCode,
		ResponseTime:   r.ResponseTime,
		Connection:     r.Connection,
	}
	if r.LastChanged != nil {
		m.LastChanged = r.LastChanged.UTC()
	}
	m.ApplyDefaults()
	return m
}

func fromMonitor(m monitor.Monitor) monitorRow {
	r := monitorRow{
		ID:             m.ID,
		UserID:         m.UserID,
		NotificationID: m.NotificationID,
		Name:           m.Name,
		Type:           string(m.Type),
		Active:         m.Active,
		Frequency:      m.Frequency,
		AlertThreshold: m.AlertThreshold,
		Status:         int(m.Status),
		URL:            m.URL,
		Port:           m.Port,
		Timeout:        m.Timeout,
		Redirects:      m.Redirects,
		Method:         m.Method,
		Headers:        m.Headers,
		Body:           m.Body,
		AuthMethod:     m.AuthMethod,
		Username:       m.Username,
		Password:       m.Password,
		BearerToken:    m.BearerToken,
		ContentType:    m.ContentType,
		StatusCode:     m.StatusCode,
		ResponseTime:   m.ResponseTime,
		Connection:     m.Connection,
	}
	if !m.LastChanged.IsZero() {
		lc := m.LastChanged
		r.LastChanged = &lc
	}
	return r
}

type sslRow struct {
	ID             int    `gorm:"primaryKey"`
	UserID         int    `gorm:"not null;index"`
	NotificationID int
	Name           string `gorm:"not null"`
	Active         bool
	Status         int
	URL            string `gorm:"not null"`
	Frequency      int
	AlertThreshold int
	Info           string
}

func (sslRow) TableName() string { return "ssl_monitors" }

func (r sslRow) toDomain() monitor.SSLMonitor {
	m := monitor.SSLMonitor{
		ID:             r.ID,
		UserID:         r.UserID,
		NotificationID: r.NotificationID,
		Name:           r.Name,
		Active:         r.Active,
		Status:         monitor.Status(r.Status),
		URL:            r.URL,
		Frequency:      r.Frequency,
		AlertThreshold: r.AlertThreshold,
		Info:           r.Info,
	}
	if m.Frequency <= 0 {
		m.Frequency = monitor.DefaultFrequency
	}
	return m
}

type notificationRow struct {
	ID        int `gorm:"primaryKey"`
	UserID    int `gorm:"not null;index"`
	GroupName string
	Emails    string
}

func (notificationRow) TableName() string { return "notifications" }

// heartbeatRow backs every per-protocol heartbeat table. Indexes are created per table in migrate.
type heartbeatRow struct {
	ID           int64 `gorm:"primaryKey"`
	MonitorID    int   `gorm:"not null"`
	Status       int   `gorm:"not null"`
	Code         int
	Message      string
	Timestamp    int64 `gorm:"not null"`
	ResponseTime int64
	Connection   string
	ReqHeaders   string
	ResHeaders   string
	ReqBody      string
	ResBody      string
}

func (r heartbeatRow) toDomain() heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		ID:           r.ID,
		MonitorID:    r.MonitorID,
		Status:       monitor.Status(r.Status),
		Code:         r.Code,
		Message:      r.Message,
		Timestamp:    r.Timestamp,
		ResponseTime: r.ResponseTime,
		Connection:   r.Connection,
		ReqHeaders:   r.ReqHeaders,
		ResHeaders:   r.ResHeaders,
		ReqBody:      r.ReqBody,
		ResBody:      r.ResBody,
	}
}

func fromHeartbeat(hb heartbeat.Heartbeat) heartbeatRow {
	return heartbeatRow{
		MonitorID:    hb.MonitorID,
		Status:       int(hb.Status),
		Code:         hb.Code,
		Message:      hb.Message,
		Timestamp:    hb.Timestamp,
		ResponseTime: hb.ResponseTime,
		Connection:   hb.Connection,
		ReqHeaders:   hb.ReqHeaders,
		ResHeaders:   hb.ResHeaders,
		ReqBody:      hb.ReqBody,
		ResBody:      hb.ResBody,
	}
}

func jsonString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode seed value: %w", err)
	}
	return string(b), nil
}
