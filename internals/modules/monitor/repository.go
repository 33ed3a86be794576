package monitor

import (
	"context"
	"time"

	"uptimer/pkg/apperror"
	"uptimer/pkg/db"
	"uptimer/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

const monitorColumns = `id, user_id, notification_id, name, type, active, frequency, alert_threshold,
	status, last_changed, url, port, timeout, redirects, method, headers, body, http_auth_method,
	basic_auth_user, basic_auth_pass, bearer_token, content_type, status_code, response_time, connection`

const sslColumns = `id, user_id, notification_id, name, active, status, url, frequency, alert_threshold, info`

type Repository struct {
	db     db.DBTX
	logger *zerolog.Logger
}

func NewRepository(dbExecutor db.DBTX, logger *zerolog.Logger) *Repository {
	return &Repository{
		db:     dbExecutor,
		logger: logger,
	}
}

func scanMonitor(row pgx.Row) (Monitor, error) {
	var (
		m           Monitor
		notifID     pgtype.Int4
		lastChanged pgtype.Timestamptz
		port        pgtype.Int4
		typ         string
		texts       [11]pgtype.Text
	)
	err := row.Scan(
		&m.ID, &m.UserID, &notifID, &m.Name, &typ, &m.Active, &m.Frequency, &m.AlertThreshold,
		&m.Status, &lastChanged, &m.URL, &port, &m.Timeout, &m.Redirects,
		&texts[0], &texts[1], &texts[2], &texts[3], &texts[4], &texts[5], &texts[6],
		&texts[7], &texts[8], &texts[9], &texts[10],
	)
	if err != nil {
		return Monitor{}, err
	}

	m.Type = Type(typ)
	m.NotificationID = int(utils.FromPgInt32(notifID))
	m.LastChanged = utils.FromPgTimestamptz(lastChanged)
	m.Port = int(utils.FromPgInt32(port))
	m.Method = utils.FromPgText(texts[0])
	m.Headers = utils.FromPgText(texts[1])
	m.Body = utils.FromPgText(texts[2])
	m.AuthMethod = utils.FromPgText(texts[3])
	m.Username = utils.FromPgText(texts[4])
	m.Password = utils.FromPgText(texts[5])
	m.BearerToken = utils.FromPgText(texts[6])
	m.ContentType = utils.FromPgText(texts[7])
	m.StatusCode = utils.FromPgText(texts[8])
	m.ResponseTime = utils.FromPgText(texts[9])
	m.Connection = utils.FromPgText(texts[10])
	m.ApplyDefaults()
	return m, nil
}

func scanSSLMonitor(row pgx.Row) (SSLMonitor, error) {
	var (
		m       SSLMonitor
		notifID pgtype.Int4
		info    pgtype.Text
	)
	err := row.Scan(&m.ID, &m.UserID, &notifID, &m.Name, &m.Active, &m.Status, &m.URL,
		&m.Frequency, &m.AlertThreshold, &info)
	if err != nil {
		return SSLMonitor{}, err
	}
	m.NotificationID = int(utils.FromPgInt32(notifID))
	m.Info = utils.FromPgText(info)
	if m.Frequency <= 0 {
		m.Frequency = DefaultFrequency
	}
	return m, nil
}

func (r *Repository) GetMonitor(ctx context.Context, id int) (Monitor, error) {
	const op string = "repo.monitor.get"

	row := r.db.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, id)
	m, err := scanMonitor(row)
	if err != nil {
		return Monitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *Repository) ListActiveMonitors(ctx context.Context) ([]Monitor, error) {
	const op string = "repo.monitor.list_active"

	return r.listMonitors(ctx, op, `SELECT `+monitorColumns+` FROM monitors WHERE active = true ORDER BY id`)
}

func (r *Repository) ListUserActiveMonitors(ctx context.Context, userID int) ([]Monitor, error) {
	const op string = "repo.monitor.list_user_active"

	return r.listMonitors(ctx, op,
		`SELECT `+monitorColumns+` FROM monitors WHERE user_id = $1 AND active = true ORDER BY created_at DESC, id DESC`,
		userID)
}

func (r *Repository) listMonitors(ctx context.Context, op, query string, args ...any) ([]Monitor, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var monitors []Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return monitors, nil
}

// UpdateMonitorStatus writes the status every tick. last_changed moves only when lastChanged is non-nil.
func (r *Repository) UpdateMonitorStatus(ctx context.Context, id int, status Status, lastChanged *time.Time) error {
	const op string = "repo.monitor.update_status"

	var ts pgtype.Timestamptz
	if lastChanged != nil {
		ts = utils.ToPgTimestamptz(*lastChanged)
	}

	_, err := r.db.Exec(ctx,
		`UPDATE monitors SET status = $2, last_changed = COALESCE($3, last_changed) WHERE id = $1`,
		id, status, ts)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) DeleteMonitor(ctx context.Context, id int) error {
	const op string = "repo.monitor.delete"

	tag, err := r.db.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, id)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return &apperror.Error{
			Kind:    apperror.NotFound,
			Op:      op,
			Message: "monitor not found",
		}
	}
	return nil
}

func (r *Repository) GetSSLMonitor(ctx context.Context, id int) (SSLMonitor, error) {
	const op string = "repo.ssl_monitor.get"

	row := r.db.QueryRow(ctx, `SELECT `+sslColumns+` FROM ssl_monitors WHERE id = $1`, id)
	m, err := scanSSLMonitor(row)
	if err != nil {
		return SSLMonitor{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return m, nil
}

func (r *Repository) ListActiveSSLMonitors(ctx context.Context) ([]SSLMonitor, error) {
	const op string = "repo.ssl_monitor.list_active"

	rows, err := r.db.Query(ctx, `SELECT `+sslColumns+` FROM ssl_monitors WHERE active = true ORDER BY id`)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	defer rows.Close()

	var monitors []SSLMonitor
	for rows.Next() {
		m, err := scanSSLMonitor(rows)
		if err != nil {
			return nil, utils.WrapRepoError(op, err, false, r.logger)
		}
		monitors = append(monitors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return monitors, nil
}

func (r *Repository) UpdateSSLInfo(ctx context.Context, id int, info string) error {
	const op string = "repo.ssl_monitor.update_info"

	if _, err := r.db.Exec(ctx, `UPDATE ssl_monitors SET info = $2 WHERE id = $1`, id, info); err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) GetNotificationGroup(ctx context.Context, id int) (NotificationGroup, error) {
	const op string = "repo.notification.get"

	var g NotificationGroup
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, group_name, emails FROM notifications WHERE id = $1`, id,
	).Scan(&g.ID, &g.UserID, &g.GroupName, &g.Emails)
	if err != nil {
		return NotificationGroup{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return g, nil
}
