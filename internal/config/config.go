package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service     Service     `envconfig:"SERVICE"`
	RabbitMQ    RabbitMQ    `envconfig:"RABBITMQ"`
	Postgres    Postgres    `envconfig:"POSTGRES"`
	Emitter     Emitter     `envconfig:"EMITTER"`
	Transformer Transformer `envconfig:"TRANSFORMER"`
	Retry       Retry       `envconfig:"RETRY"`
	Consumer    Consumer    `envconfig:"CONSUMER"`
}

type Service struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	APIPort     string `envconfig:"API_PORT" default:"8080"`
}

type RabbitMQ struct {
	Host               string        `envconfig:"HOST" default:"localhost"`
	Port               string        `envconfig:"PORT" default:"5672"`
	User               string        `envconfig:"USER" default:"guest"`
	Password           string        `envconfig:"PASSWORD" default:"guest"`
	VHost              string        `envconfig:"VHOST" default:"/"`
	Prefetch           int           `envconfig:"PREFETCH" default:"1"`
	DeadLetterExchange string        `envconfig:"DEAD_LETTER_EXCHANGE" default:"fraud_exchange.dlx"`
	DialTimeout        time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	PublishTimeout     time.Duration `envconfig:"PUBLISH_TIMEOUT" default:"30s"`
}

// URL builds the AMQP connection URL.
func (r RabbitMQ) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   net.JoinHostPort(r.Host, r.Port),
		Path:   "/" + url.PathEscape(trimLeadingSlash(r.VHost)),
	}
	return u.String()
}

type Postgres struct {
	Host         string        `envconfig:"HOST" default:"localhost"`
	Port         string        `envconfig:"PORT" default:"5432"`
	Database     string        `envconfig:"DB" default:"fraud_db"`
	User         string        `envconfig:"USER" default:"user"`
	Password     string        `envconfig:"PASSWORD" default:"password"`
	SSLMode      string        `envconfig:"SSLMODE" default:"disable"`
	MaxConns     int32         `envconfig:"MAX_CONNS" default:"4"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	InitSchema   bool          `envconfig:"INIT_SCHEMA" default:"false"`
}

// DSN builds a libpq style connection URL understood by pgx.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

type Emitter struct {
	SourcePath string `envconfig:"SOURCE_PATH" default:"data/fraudTrain.csv"`
	BatchSize  int    `envconfig:"BATCH_SIZE" default:"1000"`
}

type Transformer struct {
	JobCategoriesFile string `envconfig:"JOB_CATEGORIES_FILE"`
}

type Retry struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF" default:"1s"`
	MaxBackoff  time.Duration `envconfig:"MAX_BACKOFF" default:"30s"`
}

type Consumer struct {
	HealthCheckPort string `envconfig:"HEALTH_CHECK_PORT" default:"8081"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Emitter.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("EMITTER_BATCH_SIZE must be >= 1, got %d", c.Emitter.BatchSize))
	}
	if c.RabbitMQ.Prefetch < 1 {
		errs = append(errs, fmt.Errorf("RABBITMQ_PREFETCH must be >= 1, got %d", c.RabbitMQ.Prefetch))
	}
	if strings.TrimSpace(c.RabbitMQ.DeadLetterExchange) == "" {
		errs = append(errs, errors.New("RABBITMQ_DEAD_LETTER_EXCHANGE must not be empty"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.MaxBackoff < c.Retry.BaseBackoff {
		errs = append(errs, errors.New("RETRY_MAX_BACKOFF must not be smaller than RETRY_BASE_BACKOFF"))
	}
	if c.Postgres.WriteTimeout <= 0 {
		errs = append(errs, errors.New("POSTGRES_WRITE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func trimLeadingSlash(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}
