package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	QueueNone     = "none"
	QueueKafka    = "kafka"
	QueueRabbitMQ = "rabbitmq"
)

// Config holds every setting of both binaries. It is read once per process.
type Config struct {
	App     AppConfig
	Store   StoreConfig
	Queue   QueueConfig
	Secret  SecretConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port            string        `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	CounterKey      string        `envconfig:"COUNTER_KEY" default:"requests"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// StoreConfig addresses the counter store. URLSecret, when set, names the
// secret that holds the connection string and takes precedence over URL.
type StoreConfig struct {
	Backend      string `envconfig:"STORE_BACKEND" default:"memory"`
	URL          string `envconfig:"STORE_URL"`
	URLSecret    string `envconfig:"STORE_URL_SECRET"`
	DatabaseName string `envconfig:"DATABASE_NAME"`
	Table        string `envconfig:"COUNTER_TABLE" default:"counters"`
}

type QueueConfig struct {
	Backend       string `envconfig:"QUEUE_BACKEND" default:"none"`
	URL           string `envconfig:"QUEUE_URL"`
	URLSecret     string `envconfig:"QUEUE_URL_SECRET"`
	Name          string `envconfig:"QUEUE_NAME" default:"counter-updates"`
	ConsumerGroup string `envconfig:"QUEUE_CONSUMER_GROUP" default:"counterlog"`
	Workers       int    `envconfig:"QUEUE_WORKERS" default:"4"`
}

// SecretConfig.Store is either "env" or a directory holding one file per secret.
type SecretConfig struct {
	Store string `envconfig:"SECRET_STORE" default:"env"`
}

type TracingConfig struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"hitcounter"`
}

// LoadConfig loads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres, BackendRedis:
		if c.Store.URL == "" && c.Store.URLSecret == "" {
			problems = append(problems, "STORE_URL or STORE_URL_SECRET is required for "+c.Store.Backend)
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	switch c.Queue.Backend {
	case QueueNone:
	case QueueKafka, QueueRabbitMQ:
		if c.Queue.URL == "" && c.Queue.URLSecret == "" {
			problems = append(problems, "QUEUE_URL or QUEUE_URL_SECRET is required for "+c.Queue.Backend)
		}
		if c.Queue.Name == "" {
			problems = append(problems, "QUEUE_NAME must not be empty")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown QUEUE_BACKEND %q", c.Queue.Backend))
	}

	if c.App.CounterKey == "" {
		problems = append(problems, "COUNTER_KEY must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Brokers splits a comma separated broker list.
func Brokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
