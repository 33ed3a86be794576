package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func LoadConfig(path string) (*Config, error) {
	// .env is optional, real env always wins
	_ = godotenv.Load()

	v := viper.New()

	// default first
	setDefaults(v)

	// File Config
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Env Config
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read File
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validate
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "uptimer")
	v.SetDefault("port", 8080)
	v.SetDefault("timezone", "UTC")

	v.SetDefault("log.level", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("sqlite.path", "./uptimer.db")
	v.SetDefault("sqlite.seed_file", "")

	v.SetDefault("scheduler.jitter_min", "300ms")
	v.SetDefault("scheduler.jitter_max", "1000ms")
	v.SetDefault("scheduler.tick_timeout", "2m")
	v.SetDefault("scheduler.refresh_interval", 10)

	v.SetDefault("alert.worker_count", 5)
	v.SetDefault("alert.queue_size", 500)

	v.SetDefault("probe.max_body_bytes", 1<<20)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.conn_max_lifetime", "2m")
	v.SetDefault("redis.conn_max_idle_time", "30s")

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.exchange_type", "direct")
	v.SetDefault("rabbitmq.routing_key", "monitor.lifecycle")
	v.SetDefault("rabbitmq.alert_routing_key", "alert.email")
	v.SetDefault("rabbitmq.refresh_routing_key", "monitor.refresh")
	v.SetDefault("rabbitmq.worker_count", 10)

	v.SetDefault("db.max_open_conns", 50)
	v.SetDefault("db.min_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "1h")
	v.SetDefault("db.conn_max_idle_time", "30m")
	v.SetDefault("db.health_timeout", "5s")
}

func validateConfig(cfg *Config) error {

	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return formatValidationErrors(ve)
		}
		return err
	}

	// cross-section rules the tags can't express
	if cfg.Storage.Driver == "postgres" && cfg.DB.URL == "" {
		return errors.New("config validation failed:\n- field 'Config.DB.URL' failed on 'required'\n")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("config validation failed:\n- field 'Config.Timezone' failed on 'timezone': %v\n", err)
	}
	return nil
}

func formatValidationErrors(ve validator.ValidationErrors) error {
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")

	for _, fe := range ve {
		fmt.Fprintf(&sb, "- field '%s' failed on '%s'\n", fe.Namespace(), fe.Tag())
	}
	return errors.New(sb.String())
}
