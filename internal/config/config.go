package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Backend      BackendConfig
	Webhook      WebhookConfig
	Session      SessionConfig
	CORS         CORSConfig
	Mock         MockConfig
	Aggregation  AggregationConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
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

// BackendConfig points at the ticketing backend.
type BackendConfig struct {
	BaseURL        string
	TicketDoctype  string
	TimeoutSeconds int
}

// WebhookConfig holds the automation endpoints used for ticket creation.
type WebhookConfig struct {
	TicketCreateURL  string
	ReporteeURL      string
	LinkFixupDelayMS int
}

// SessionConfig controls the first-party session cookie.
type SessionConfig struct {
	CookieName    string
	SigningSecret string
	MaxAgeDays    int
}

// CORSConfig lists origins allowed to call the API with credentials.
type CORSConfig struct {
	AllowedOrigins []string
}

// MockConfig enables canned backend data for local development.
type MockConfig struct {
	Enabled      bool
	FixturesPath string
}

// AggregationConfig bounds the reporting-manager fan-out.
type AggregationConfig struct {
	Concurrency          int
	DirectoryCacheTTLSec int
}

// PostgresConfig holds DB connection values for the audit log.
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
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	WebhookURL     string
	TelegramToken  string
	TelegramChatID int64
}

// Load reads configuration from environment variables, applying defaults where possible.
// envFiles are passed to godotenv; a missing .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	var chatID int64
	if raw := os.Getenv("NOTIFY_TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFY_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-relay"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:8000"), "/"),
			TicketDoctype:  getEnv("BACKEND_TICKET_DOCTYPE", "Request Tickets"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15),
		},
		Webhook: WebhookConfig{
			TicketCreateURL:  os.Getenv("WEBHOOK_TICKET_CREATE_URL"),
			ReporteeURL:      os.Getenv("WEBHOOK_REPORTEE_URL"),
			LinkFixupDelayMS: getEnvAsInt("LINK_FIXUP_DELAY_MS", 500),
		},
		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE_NAME", "relay_sid"),
			SigningSecret: getEnv("SESSION_SIGNING_SECRET", "dev-secret"),
			MaxAgeDays:    getEnvAsInt("SESSION_MAX_AGE_DAYS", 7),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Mock: MockConfig{
			Enabled:      getEnvAsBool("MOCK_API", false),
			FixturesPath: os.Getenv("MOCK_FIXTURES_PATH"),
		},
		Aggregation: AggregationConfig{
			Concurrency:          getEnvAsInt("AGGREGATION_CONCURRENCY", 8),
			DirectoryCacheTTLSec: getEnvAsInt("DIRECTORY_CACHE_TTL_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 5)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			WebhookURL:     os.Getenv("NOTIFY_WEBHOOK_URL"),
			TelegramToken:  os.Getenv("NOTIFY_TELEGRAM_TOKEN"),
			TelegramChatID: chatID,
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

// IsLocal reports whether the service runs on a developer machine, where
// cookies are not marked Secure and mock mode is permitted.
func (a AppConfig) IsLocal() bool {
	switch strings.ToLower(a.Env) {
	case "development", "local", "test":
		return true
	}
	return false
}

// Timeout returns the per-call backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// LinkFixupDelay is the pause between webhook creation and the direct
// link/attachment update.
func (w WebhookConfig) LinkFixupDelay() time.Duration {
	if w.LinkFixupDelayMS <= 0 {
		return 0
	}
	return time.Duration(w.LinkFixupDelayMS) * time.Millisecond
}

// MaxAge returns the lifetime of a remembered session cookie.
func (s SessionConfig) MaxAge() time.Duration {
	if s.MaxAgeDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.MaxAgeDays) * 24 * time.Hour
}

// MockActive reports whether mock mode applies. It is honoured only for
// local environments.
func (c *Config) MockActive() bool {
	return c.Mock.Enabled && c.App.IsLocal()
}

// DirectoryCacheTTL returns how long directory lookups stay cached.
func (a AggregationConfig) DirectoryCacheTTL() time.Duration {
	if a.DirectoryCacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(a.DirectoryCacheTTLSec) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
