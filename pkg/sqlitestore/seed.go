package sqlitestore

import (
	"context"
	"fmt"
	"os"

	"uptimer/internals/modules/monitor"

	"gopkg.in/yaml.v3"
)

type seedNotification struct {
	ID     int      `yaml:"id"`
	UserID int      `yaml:"userId"`
	Name   string   `yaml:"name"`
	Emails []string `yaml:"emails"`
}

type seedMonitor struct {
	ID             int               `yaml:"id"`
	UserID         int               `yaml:"userId"`
	NotificationID int               `yaml:"notificationId,omitempty"`
	Name           string            `yaml:"name"`
	Type           string            `yaml:"type"`
	Active         *bool             `yaml:"active,omitempty"`
	Frequency      int               `yaml:"frequency,omitempty"`
	AlertThreshold *int              `yaml:"alertThreshold,omitempty"`
	URL            string            `yaml:"url"`
	Port           int               `yaml:"port,omitempty"`
	Timeout        int               `yaml:"timeout,omitempty"`
	Redirects      int               `yaml:"redirects,omitempty"`
	Method         string            `yaml:"method,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	Body           string            `yaml:"body,omitempty"`
	AuthMethod     string            `yaml:"authMethod,omitempty"`
	Username       string            `yaml:"username,omitempty"`
	Password       string            `yaml:"password,omitempty"`
	BearerToken    string            `yaml:"bearerToken,omitempty"`
	StatusCodes    []int             `yaml:"statusCodes,omitempty"`
	ContentTypes   []string          `yaml:"contentTypes,omitempty"`
	ResponseTime   int               `yaml:"responseTime,omitempty"`
	Connection     string            `yaml:"connection,omitempty"`
}

type seedFile struct {
	Notifications []seedNotification `yaml:"notifications"`
	Monitors      []seedMonitor      `yaml:"monitors"`
}

// Seed upserts the notification groups and monitors declared in a YAML file.
// A missing file is not an error.
func (s *Store) Seed(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.logger.Debug().Str("seed_file", path).Msg("seed file not found")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	for _, n := range file.Notifications {
		emails, err := jsonString(n.Emails)
		if err != nil {
			return 0, err
		}
		if _, err := s.SaveNotificationGroup(ctx, monitor.NotificationGroup{
			ID: n.ID, UserID: n.UserID, GroupName: n.Name, Emails: emails,
		}); err != nil {
			return 0, err
		}
	}

	count := 0
	for _, sm := range file.Monitors {
		if sm.Name == "" || sm.URL == "" {
			s.logger.Warn().Int("id", sm.ID).Msg("skipping seeded monitor with missing name or url")
			continue
		}
		typ, err := monitor.ParseType(sm.Type)
		if err != nil {
			return count, err
		}

		active := sm.Active == nil || *sm.Active
		threshold := monitor.DefaultAlertThreshold
		if sm.AlertThreshold != nil {
			threshold = *sm.AlertThreshold
		}

		if typ == monitor.SSL {
			if _, err := s.SaveSSLMonitor(ctx, monitor.SSLMonitor{
				ID: sm.ID, UserID: sm.UserID, NotificationID: sm.NotificationID, Name: sm.Name,
				Active: active, URL: sm.URL, Frequency: sm.Frequency, AlertThreshold: threshold,
			}); err != nil {
				return count, err
			}
			count++
			continue
		}

		m, err := sm.toMonitor(typ, active, threshold)
		if err != nil {
			return count, err
		}
		if _, err := s.SaveMonitor(ctx, m); err != nil {
			return count, err
		}
		count++
	}

	s.logger.Info().Str("seed_file", path).Int("monitors", count).Msg("seeded monitors")
	return count, nil
}

func (sm seedMonitor) toMonitor(typ monitor.Type, active bool, threshold int) (monitor.Monitor, error) {
	m := monitor.Monitor{
		ID:             sm.ID,
		UserID:         sm.UserID,
		NotificationID: sm.NotificationID,
		Name:           sm.Name,
		Type:           typ,
		Active:         active,
		Frequency:      sm.Frequency,
		AlertThreshold: threshold,
		URL:            sm.URL,
		Port:           sm.Port,
		Timeout:        sm.Timeout,
		Redirects:      sm.Redirects,
		Method:         sm.Method,
		Body:           sm.Body,
		AuthMethod:     sm.AuthMethod,
		Username:       sm.Username,
		Password:       sm.Password,
		BearerToken:    sm.BearerToken,
		Connection:     sm.Connection,
	}

	var err error
	if len(sm.Headers) > 0 {
		if m.Headers, err = jsonString(sm.Headers); err != nil {
			return m, err
		}
	}
	if len(sm.StatusCodes) > 0 {
		if m.StatusCode, err = jsonString(sm.StatusCodes); err != nil {
			return m, err
		}
	}
	if len(sm.ContentTypes) > 0 {
		if m.ContentType, err = jsonString(sm.ContentTypes); err != nil {
			return m, err
		}
	}
	if sm.ResponseTime > 0 {
		m.ResponseTime = fmt.Sprint(sm.ResponseTime)
	}
	m.ApplyDefaults()
	return m, nil
}
