package monitor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type is the protocol a monitor speaks.
type Type string

const (
	HTTP  Type = "http"
	TCP   Type = "tcp"
	Mongo Type = "mongodb"
	Redis Type = "redis"
	SSL   Type = "ssl"
)

// Types lists every protocol variant, SSL included.
var Types = []Type{HTTP, TCP, Mongo, Redis, SSL}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case HTTP, TCP, Mongo, Redis, SSL:
		return t, nil
	}
	return "", fmt.Errorf("unknown monitor type %q", s)
}

// HasHeartbeats reports whether ticks of this type append heartbeats.
// SSL keeps only a certificate snapshot.
func (t Type) HasHeartbeats() bool {
	return t != SSL && t != ""
}

type Status int

const (
	StatusUp   Status = 0
	StatusDown Status = 1
)

func (s Status) String() string {
	if s == StatusDown {
		return "down"
	}
	return "up"
}

const (
	AuthNone  = "none"
	AuthBasic = "basic"
	AuthToken = "token"
)

const (
	DefaultFrequency      = 30
	DefaultAlertThreshold = 1
	DefaultTimeout        = 10
)

type Monitor struct {
	ID             int
	UserID         int
	NotificationID int
	Name           string
	Type           Type
	Active         bool
	Frequency      int // seconds
	AlertThreshold int // 0 disables alerting
	Status         Status
	LastChanged    time.Time

	URL       string
	Port      int
	Timeout   int // seconds
	Redirects int

	Method      string
	Headers     string // JSON object
	Body        string
	AuthMethod  string
	Username    string
	Password    string
	BearerToken string

	// serialized expectations
	ContentType  string // JSON string list
	StatusCode   string // JSON number list
	ResponseTime string // JSON number, ms
	Connection   string
}

// ApplyDefaults fills the zero values a freshly created monitor would get.
func (m *Monitor) ApplyDefaults() {
	if m.Frequency <= 0 {
		m.Frequency = DefaultFrequency
	}
	if m.Timeout <= 0 {
		m.Timeout = DefaultTimeout
	}
	if m.Method == "" {
		m.Method = "GET"
	}
	if m.AuthMethod == "" {
		m.AuthMethod = AuthNone
	}
}

// ExpectedCodes decodes the accepted status-code set.
func (m Monitor) ExpectedCodes() ([]int, error) {
	if strings.TrimSpace(m.StatusCode) == "" {
		return nil, nil
	}
	var codes []int
	if err := json.Unmarshal([]byte(m.StatusCode), &codes); err != nil {
		return nil, fmt.Errorf("decode status codes: %w", err)
	}
	return codes, nil
}

// MaxResponseTime decodes the response time ceiling in ms. Zero means unbounded.
func (m Monitor) MaxResponseTime() (int64, error) {
	if strings.TrimSpace(m.ResponseTime) == "" {
		return 0, nil
	}
	var ms float64
	if err := json.Unmarshal([]byte(m.ResponseTime), &ms); err != nil {
		return 0, fmt.Errorf("decode response time: %w", err)
	}
	return int64(ms), nil
}

func (m Monitor) ContentTypes() ([]string, error) {
	if strings.TrimSpace(m.ContentType) == "" {
		return nil, nil
	}
	var types []string
	if err := json.Unmarshal([]byte(m.ContentType), &types); err != nil {
		return nil, fmt.Errorf("decode content types: %w", err)
	}
	return types, nil
}

type SSLMonitor struct {
	ID             int
	UserID         int
	NotificationID int
	Name           string
	Active         bool
	Status         Status
	URL            string
	Frequency      int
	AlertThreshold int
	Info           string // last certificate snapshot, JSON
}

type NotificationGroup struct {
	ID        int
	UserID    int
	GroupName string
	Emails    string // JSON string list
}
