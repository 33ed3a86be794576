package config

import "time"

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
}

type DBConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns" validate:"gt=0"`
	MinIdleConns    int32         `mapstructure:"min_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout" validate:"gt=0"`
}

type SQLiteConfig struct {
	Path     string `mapstructure:"path"`
	SeedFile string `mapstructure:"seed_file"`
}

type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url" validate:"required_if=Enabled true"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type RabbitMQConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BrokerLink        string `mapstructure:"broker_link" validate:"required_if=Enabled true"`
	ExchangeName      string `mapstructure:"exchange_name" validate:"required_if=Enabled true"`
	ExchangeType      string `mapstructure:"exchange_type"`
	QueueName         string `mapstructure:"queue_name" validate:"required_if=Enabled true"`
	RoutingKey        string `mapstructure:"routing_key"`
	AlertRoutingKey   string `mapstructure:"alert_routing_key"`
	RefreshRoutingKey string `mapstructure:"refresh_routing_key"`
	WorkerCount       int    `mapstructure:"worker_count" validate:"gt=0"`
}

type AlertConfig struct {
	WorkerCount int    `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int    `mapstructure:"queue_size" validate:"gt=0"`
	AppLink     string `mapstructure:"app_link"`
	AppIcon     string `mapstructure:"app_icon"`
}

type SchedulerConfig struct {
	JitterMin       time.Duration `mapstructure:"jitter_min"`
	JitterMax       time.Duration `mapstructure:"jitter_max" validate:"gtefield=JitterMin"`
	TickTimeout     time.Duration `mapstructure:"tick_timeout" validate:"gt=0"`
	RefreshInterval int           `mapstructure:"refresh_interval" validate:"gt=0"` // seconds
}

type ProbeConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gt=0"`
}

type Config struct {
	Env         string          `mapstructure:"env" validate:"required"`
	ServiceName string          `mapstructure:"service_name" validate:"required"`
	Port        int             `mapstructure:"port" validate:"gt=0,lte=65535"`
	Timezone    string          `mapstructure:"timezone"`
	Log         LogConfig       `mapstructure:"log"`
	Storage     StorageConfig   `mapstructure:"storage"`
	DB          DBConfig        `mapstructure:"db"`
	SQLite      SQLiteConfig    `mapstructure:"sqlite"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig  `mapstructure:"rabbitmq"`
	Alert       AlertConfig     `mapstructure:"alert"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Probe       ProbeConfig     `mapstructure:"probe"`
}
