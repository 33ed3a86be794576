package heartbeat

import (
	"context"
	"fmt"
	"time"

	"uptimer/internals/modules/monitor"
	"uptimer/pkg/apperror"
	"uptimer/pkg/db"
	"uptimer/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
)

const columns = `id, monitor_id, status, code, message, timestamp, response_time,
	connection, req_headers, res_headers, req_body, res_body`

// Table maps a protocol to the heartbeat table that stores it.
func Table(t monitor.Type) (string, error) {
	switch t {
	case monitor.HTTP:
		return "http_heartbeats", nil
	case monitor.TCP:
		return "tcp_heartbeats", nil
	case monitor.Mongo:
		return "mongo_heartbeats", nil
	case monitor.Redis:
		return "redis_heartbeats", nil
	}
	return "", apperror.Newf(apperror.InvalidInput, "heartbeat.table", "monitor type %q has no heartbeats", t)
}

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

func (r *Repository) AppendHeartbeat(ctx context.Context, t monitor.Type, hb Heartbeat) error {
	const op string = "repo.heartbeat.append"

	table, err := Table(t)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s
		(monitor_id, status, code, message, timestamp, response_time, connection, req_headers, res_headers, req_body, res_body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, table),
		hb.MonitorID, hb.Status, hb.Code, hb.Message, hb.Timestamp, hb.ResponseTime,
		utils.ToPgText(hb.Connection), utils.ToPgText(hb.ReqHeaders), utils.ToPgText(hb.ResHeaders),
		utils.ToPgText(hb.ReqBody), utils.ToPgText(hb.ResBody),
	)
	if err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

// QueryHeartbeats returns heartbeats newer than since, newest first.
func (r *Repository) QueryHeartbeats(ctx context.Context, t monitor.Type, monitorID int, since time.Time) ([]Heartbeat, error) {
	const op string = "repo.heartbeat.query"

	table, err := Table(t)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, op, fmt.Sprintf(
		`SELECT %s FROM %s WHERE monitor_id = $1 AND timestamp >= $2 ORDER BY timestamp DESC`, columns, table),
		monitorID, since.UnixMilli())
}

// LatestHeartbeats returns at most limit heartbeats, newest first.
func (r *Repository) LatestHeartbeats(ctx context.Context, t monitor.Type, monitorID int, limit int) ([]Heartbeat, error) {
	const op string = "repo.heartbeat.latest"

	table, err := Table(t)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, op, fmt.Sprintf(
		`SELECT %s FROM %s WHERE monitor_id = $1 ORDER BY timestamp DESC LIMIT $2`, columns, table),
		monitorID, limit)
}

func (r *Repository) DeleteHeartbeats(ctx context.Context, t monitor.Type, monitorID int) error {
	const op string = "repo.heartbeat.delete"

	table, err := Table(t)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE monitor_id = $1`, table), monitorID); err != nil {
		return utils.WrapRepoError(op, err, false, r.logger)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, op, query string, args ...any) ([]Heartbeat, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}

	beats, err := pgx.CollectRows(rows, scanHeartbeat)
	if err != nil {
		return nil, utils.WrapRepoError(op, err, false, r.logger)
	}
	return beats, nil
}

func scanHeartbeat(row pgx.CollectableRow) (Heartbeat, error) {
	var (
		hb    Heartbeat
		texts [5]pgtype.Text
	)
	err := row.Scan(&hb.ID, &hb.MonitorID, &hb.Status, &hb.Code, &hb.Message, &hb.Timestamp, &hb.ResponseTime,
		&texts[0], &texts[1], &texts[2], &texts[3], &texts[4])
	if err != nil {
		return Heartbeat{}, err
	}
	hb.Connection = utils.FromPgText(texts[0])
	hb.ReqHeaders = utils.FromPgText(texts[1])
	hb.ResHeaders = utils.FromPgText(texts[2])
	hb.ReqBody = utils.FromPgText(texts[3])
	hb.ResBody = utils.FromPgText(texts[4])
	return hb, nil
}
