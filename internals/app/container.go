package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"uptimer/config"
	"uptimer/internals/modules/alert"
	"uptimer/internals/modules/executor"
	"uptimer/internals/modules/probe"
	"uptimer/internals/modules/scheduler"
	"uptimer/internals/modules/uptime"
	"uptimer/pkg/db"
	"uptimer/pkg/httpclient"
	"uptimer/pkg/rabbitmq"
	"uptimer/pkg/redisstore"
	"uptimer/pkg/sqlitestore"

	"github.com/go-playground/validator/v10"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Container struct {
	Store         Store
	RedisClient   *redisstore.Client
	Logger        *zerolog.Logger
	uptimeSvc     *uptime.Service
	uptimeHandler *uptime.Handler
	scheduler     *scheduler.Scheduler
	executor      *executor.Executor
	alertSvc      *alert.AlertService

	// messaging, nil when rabbitmq is disabled
	amqpConn   *amqp091.Connection
	alertPub   *rabbitmq.Publisher
	refreshPub *rabbitmq.Publisher
	Consumer   *rabbitmq.Consumer

	closers []io.Closer
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Container, error) {
	c := &Container{Logger: logger}

	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.Store = store

	var (
		execCache   executor.StatusCache
		uptimeCache uptime.StatusCache
	)
	if cfg.Redis.Enabled {
		redisClient, err := redisstore.New(cfg.Redis)
		if err != nil {
			c.closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.RedisClient = redisClient
		c.closers = append(c.closers, redisClient)
		execCache, uptimeCache = redisClient, redisClient
	}

	var (
		mailer  alert.Mailer = alert.NewLogMailer(logger)
		refresh uptime.Publisher
	)
	if cfg.RabbitMQ.Enabled {
		if err := c.connectRabbitMQ(&cfg.RabbitMQ); err != nil {
			c.closeAll()
			return nil, err
		}
		mailer = rabbitmq.NewMailer(c.alertPub)
		refresh = c.refreshPub
	}

	alertChan := make(chan alert.AlertEvent, cfg.Alert.QueueSize)
	c.alertSvc = alert.NewAlertService(cfg.Alert.WorkerCount, alertChan, mailer, logger)

	sch, err := scheduler.NewScheduler(cfg.Timezone, logger)
	if err != nil {
		c.closeAll()
		return nil, err
	}
	c.scheduler = sch

	c.executor = executor.NewExecutor(executor.Deps{
		Store:       store,
		Alerts:      c.alertSvc,
		Cache:       execCache,
		States:      sch.States(),
		HTTP:        probe.NewHTTPProber(httpclient.NewHttpClient(), cfg.Probe.MaxBodyBytes),
		Certs:       probe.CertChecker{},
		Locals:      alert.Locals{AppLink: cfg.Alert.AppLink, AppIcon: cfg.Alert.AppIcon},
		TickTimeout: cfg.Scheduler.TickTimeout,
		Logger:      logger,
	})

	c.uptimeSvc = uptime.NewService(ctx, store, c.executor, sch, uptimeCache, refresh, uptime.Options{
		Timezone:        cfg.Timezone,
		JitterMin:       cfg.Scheduler.JitterMin,
		JitterMax:       cfg.Scheduler.JitterMax,
		RefreshInterval: cfg.Scheduler.RefreshInterval,
	}, logger)
	c.uptimeHandler = uptime.NewHandler(c.uptimeSvc, validator.New())

	return c, nil
}

func (c *Container) openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := sqlitestore.Open(cfg.SQLite.Path, c.Logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s)
		if _, err := s.Seed(ctx, cfg.SQLite.SeedFile); err != nil {
			c.closeAll()
			return nil, err
		}
		return s, nil
	default:
		pool, err := db.ConnectToDB(ctx, &cfg.DB, c.Logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closerFunc(func() error { pool.Close(); return nil }))
		if err := db.EnsureSchema(ctx, pool); err != nil {
			c.closeAll()
			return nil, err
		}
		return newPGStore(pool, c.Logger), nil
	}
}

func (c *Container) connectRabbitMQ(cfg *config.RabbitMQConfig) error {
	conn, err := rabbitmq.NewConnection(cfg, c.Logger)
	if err != nil {
		return err
	}
	c.amqpConn = conn

	if err := rabbitmq.SetupTopology(conn, cfg); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	if c.alertPub, err = rabbitmq.NewPublisher(conn, cfg.ExchangeName, cfg.AlertRoutingKey); err != nil {
		return fmt.Errorf("alert publisher: %w", err)
	}
	if c.refreshPub, err = rabbitmq.NewPublisher(conn, cfg.ExchangeName, cfg.RefreshRoutingKey); err != nil {
		return fmt.Errorf("refresh publisher: %w", err)
	}
	if c.Consumer, err = rabbitmq.NewConsumer(conn, cfg.QueueName, cfg.WorkerCount, c.Logger); err != nil {
		return fmt.Errorf("lifecycle consumer: %w", err)
	}
	return nil
}

// Start runs the background parts: alert workers, the scheduler, the initial
// schedule pass and the lifecycle consumer.
func (c *Container) Start(ctx context.Context) {
	c.alertSvc.Start()
	c.scheduler.Start()

	go func() {
		if _, err := c.uptimeSvc.StartAll(ctx); err != nil {
			c.Logger.Error().Err(err).Msg("initial scheduling stopped")
		}
	}()

	if c.Consumer != nil {
		StartConsumer(ctx, c)
	}
}

func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	// 1. stop taking lifecycle events
	if c.Consumer != nil {
		if err := c.Consumer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("consumer: %w", err))
		}
	}

	// 2. stop ticks, running ones finish first
	if c.scheduler != nil {
		if err := c.scheduler.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	// 3. drain alerts
	if c.alertSvc != nil {
		c.alertSvc.Close()
		done := make(chan struct{})
		go func() {
			c.alertSvc.WorkerClosingWait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("alert workers: %w", ctx.Err()))
		}
	}

	// 4. close infra
	c.closeAll()
	return errors.Join(errs...)
}

func (c *Container) closeAll() {
	if c.alertPub != nil {
		_ = c.alertPub.Close()
	}
	if c.refreshPub != nil {
		_ = c.refreshPub.Close()
	}
	if c.amqpConn != nil {
		_ = c.amqpConn.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			c.Logger.Error().Err(err).Msg("failed to close resource")
		}
	}
	c.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
