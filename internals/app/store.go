package app

import (
	"context"

	"uptimer/internals/modules/executor"
	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/uptime"
	"uptimer/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store is every persistence call the engine and the query side make.
// Implemented by pgStore and *sqlitestore.Store.
type Store interface {
	executor.Store
	uptime.Store
	Ping(ctx context.Context) error
}

type (
	monitorRepo   = monitor.Repository
	heartbeatRepo = heartbeat.Repository
)

// pgStore joins the monitor and heartbeat repositories over one pool.
type pgStore struct {
	*monitorRepo
	*heartbeatRepo

	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func newPGStore(pool *pgxpool.Pool, logger *zerolog.Logger) *pgStore {
	return &pgStore{
		monitorRepo:   monitor.NewRepository(pool, logger),
		heartbeatRepo: heartbeat.NewRepository(pool, logger),
		pool:          pool,
		logger:        logger,
	}
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// DeleteMonitor removes the monitor and the heartbeats of its protocol in one transaction.
func (s *pgStore) DeleteMonitor(ctx context.Context, id int) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		monitors := monitor.NewRepository(tx, s.logger)

		m, err := monitors.GetMonitor(ctx, id)
		if err != nil {
			return err
		}
		if m.Type.HasHeartbeats() {
			if err := heartbeat.NewRepository(tx, s.logger).DeleteHeartbeats(ctx, m.Type, id); err != nil {
				return err
			}
		}
		return monitors.DeleteMonitor(ctx, id)
	})
}

var (
	_ Store = (*pgStore)(nil)
)
