package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Monitor  MonitorConfig
	Clients  ClientsConfig
	Events   EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// MonitorConfig controls the SLA breach monitor.
type MonitorConfig struct {
	Enabled         bool
	IntervalSeconds int
	LeaseTTLSeconds int
}

// ClientsConfig holds outbound collaborator endpoints.
type ClientsConfig struct {
	NotificationBaseURL string
	FeedbackBaseURL     string
	TriageBaseURL       string
	TimeoutSeconds      int
}

// EventsConfig sizes the async event dispatcher.
type EventsConfig struct {
	QueueSize int
	Workers   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Monitor: MonitorConfig{
			Enabled:         getEnvAsBool("SLA_MONITOR_ENABLED", true),
			IntervalSeconds: getEnvAsInt("SLA_MONITOR_INTERVAL_SECONDS", 120),
			LeaseTTLSeconds: getEnvAsInt("SLA_MONITOR_LEASE_TTL_SECONDS", 90),
		},
		Clients: ClientsConfig{
			NotificationBaseURL: getEnv("NOTIFICATION_SERVICE_URL", "http://notification-service:8080"),
			FeedbackBaseURL:     getEnv("FEEDBACK_SERVICE_URL", "http://feedback-service:8080"),
			TriageBaseURL:       getEnv("TRIAGE_SERVICE_URL", "http://ai-agent-service:8080"),
			TimeoutSeconds:      getEnvAsInt("CLIENT_TIMEOUT_SECONDS", 5),
		},
		Events: EventsConfig{
			QueueSize: getEnvAsInt("EVENT_QUEUE_SIZE", 256),
			Workers:   getEnvAsInt("EVENT_WORKERS", 2),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the monitor cadence.
func (m MonitorConfig) Interval() time.Duration {
	if m.IntervalSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(m.IntervalSeconds) * time.Second
}

// LeaseTTL returns the monitor cycle lease duration.
func (m MonitorConfig) LeaseTTL() time.Duration {
	if m.LeaseTTLSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(m.LeaseTTLSeconds) * time.Second
}

// Timeout returns the outbound call timeout.
func (c ClientsConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
