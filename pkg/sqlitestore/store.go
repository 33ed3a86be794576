package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/pkg/utils"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const MemoryPath = ":memory:"

// Store is the embedded single-file alternative to the postgres repositories.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger *zerolog.Logger
}

func Open(path string, logger *zerolog.Logger) (*Store, error) {
	if path == "" {
		path = "./uptimer.db"
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Warn().Err(err).Str("directory", dir).Msg("could not create database directory")
			}
		}
		dsn += "&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqlDB}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	s := &Store{db: db, sqlDB: sqlDB, logger: logger}
	if err := s.migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("sqlite store initialized")
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&monitorRow{}, &sslRow{}, &notificationRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, t := range monitor.Types {
		if !t.HasHeartbeats() {
			continue
		}
		table, _ := heartbeat.Table(t)
		if err := s.db.Table(table).AutoMigrate(&heartbeatRow{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_monitor_ts ON %s (monitor_id, timestamp)", table, table)
		if err := s.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.sqlDB.Close()
}

func (s *Store) GetMonitor(ctx context.Context, id int) (monitor.Monitor, error) {
	const op string = "sqlite.monitor.get"

	var row monitorRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return monitor.Monitor{}, utils.WrapRepoError(op, err, true, s.logger)
	}
	return row.toDomain(), nil
}

func (s *Store) ListActiveMonitors(ctx context.Context) ([]monitor.Monitor, error) {
	const op string = "sqlite.monitor.list_active"

	var rows []monitorRow
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	return toMonitors(rows), nil
}

func (s *Store) ListUserActiveMonitors(ctx context.Context, userID int) ([]monitor.Monitor, error) {
	const op string = "sqlite.monitor.list_user_active"

	var rows []monitorRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	return toMonitors(rows), nil
}

func toMonitors(rows []monitorRow) []monitor.Monitor {
	out := make([]monitor.Monitor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// SaveMonitor inserts or replaces a monitor row.
func (s *Store) SaveMonitor(ctx context.Context, m monitor.Monitor) (monitor.Monitor, error) {
	const op string = "sqlite.monitor.save"

	row := fromMonitor(m)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return monitor.Monitor{}, utils.WrapRepoError(op, err, false, s.logger)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateMonitorStatus(ctx context.Context, id int, st monitor.Status, lastChanged *time.Time) error {
	const op string = "sqlite.monitor.update_status"

	updates := map[string]any{"status": int(st)}
	if lastChanged != nil {
		updates["last_changed"] = lastChanged.UTC()
	}
	if err := s.db.WithContext(ctx).Model(&monitorRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}

// DeleteMonitor removes the monitor and the heartbeats of its protocol in one transaction.
func (s *Store) DeleteMonitor(ctx context.Context, id int) error {
	const op string = "sqlite.monitor.delete"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row monitorRow
		if err := tx.Select("id", "type").First(&row, id).Error; err != nil {
			return err
		}
		if table, err := heartbeat.Table(monitor.Type(row.Type)); err == nil {
			if err := tx.Table(table).Where("monitor_id = ?", id).Delete(&heartbeatRow{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&monitorRow{}, id).Error
	})
	if err != nil {
		return utils.WrapRepoError(op, err, true, s.logger)
	}
	return nil
}

func (s *Store) GetSSLMonitor(ctx context.Context, id int) (monitor.SSLMonitor, error) {
	const op string = "sqlite.ssl_monitor.get"

	var row sslRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return monitor.SSLMonitor{}, utils.WrapRepoError(op, err, true, s.logger)
	}
	return row.toDomain(), nil
}

func (s *Store) ListActiveSSLMonitors(ctx context.Context) ([]monitor.SSLMonitor, error) {
	const op string = "sqlite.ssl_monitor.list_active"

	var rows []sslRow
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}
	out := make([]monitor.SSLMonitor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) SaveSSLMonitor(ctx context.Context, m monitor.SSLMonitor) (monitor.SSLMonitor, error) {
	const op string = "sqlite.ssl_monitor.save"

	row := sslRow{
		ID:             m.ID,
		UserID:         m.UserID,
		NotificationID: m.NotificationID,
		Name:           m.Name,
		Active:         m.Active,
		Status:         int(m.Status),
		URL:            m.URL,
		Frequency:      m.Frequency,
		AlertThreshold: m.AlertThreshold,
		Info:           m.Info,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return monitor.SSLMonitor{}, utils.WrapRepoError(op, err, false, s.logger)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateSSLInfo(ctx context.Context, id int, info string) error {
	const op string = "sqlite.ssl_monitor.update_info"

	if err := s.db.WithContext(ctx).Model(&sslRow{}).Where("id = ?", id).Update("info", info).Error; err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}

func (s *Store) GetNotificationGroup(ctx context.Context, id int) (monitor.NotificationGroup, error) {
	const op string = "sqlite.notification.get"

	var row notificationRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return monitor.NotificationGroup{}, utils.WrapRepoError(op, err, true, s.logger)
	}
	return monitor.NotificationGroup{ID: row.ID, UserID: row.UserID, GroupName: row.GroupName, Emails: row.Emails}, nil
}

func (s *Store) SaveNotificationGroup(ctx context.Context, g monitor.NotificationGroup) (monitor.NotificationGroup, error) {
	const op string = "sqlite.notification.save"

	row := notificationRow{ID: g.ID, UserID: g.UserID, GroupName: g.GroupName, Emails: g.Emails}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return monitor.NotificationGroup{}, utils.WrapRepoError(op, err, false, s.logger)
	}
	g.ID = row.ID
	return g, nil
}

func (s *Store) AppendHeartbeat(ctx context.Context, t monitor.Type, hb heartbeat.Heartbeat) error {
	const op string = "sqlite.heartbeat.append"

	table, err := heartbeat.Table(t)
	if err != nil {
		return err
	}
	row := fromHeartbeat(hb)
	if err := s.db.WithContext(ctx).Table(table).Create(&row).Error; err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}

// QueryHeartbeats returns heartbeats newer than since, newest first.
func (s *Store) QueryHeartbeats(ctx context.Context, t monitor.Type, monitorID int, since time.Time) ([]heartbeat.Heartbeat, error) {
	const op string = "sqlite.heartbeat.query"

	return s.heartbeats(ctx, op, t, func(q *gorm.DB) *gorm.DB {
		return q.Where("monitor_id = ? AND timestamp >= ?", monitorID, since.UnixMilli())
	})
}

func (s *Store) LatestHeartbeats(ctx context.Context, t monitor.Type, monitorID int, limit int) ([]heartbeat.Heartbeat, error) {
	const op string = "sqlite.heartbeat.latest"

	return s.heartbeats(ctx, op, t, func(q *gorm.DB) *gorm.DB {
		return q.Where("monitor_id = ?", monitorID).Limit(limit)
	})
}

func (s *Store) heartbeats(ctx context.Context, op string, t monitor.Type, scope func(*gorm.DB) *gorm.DB) ([]heartbeat.Heartbeat, error) {
	table, err := heartbeat.Table(t)
	if err != nil {
		return nil, err
	}

	var rows []heartbeatRow
	q := scope(s.db.WithContext(ctx).Table(table)).Order("timestamp DESC, id DESC")
	if err := q.Find(&rows).Error; err != nil {
		return nil, utils.WrapRepoError(op, err, false, s.logger)
	}

	out := make([]heartbeat.Heartbeat, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteHeartbeats(ctx context.Context, t monitor.Type, monitorID int) error {
	const op string = "sqlite.heartbeat.delete"

	table, err := heartbeat.Table(t)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Table(table).Where("monitor_id = ?", monitorID).Delete(&heartbeatRow{}).Error; err != nil {
		return utils.WrapRepoError(op, err, false, s.logger)
	}
	return nil
}
