package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/paraiso-astral/gate-service/internal/payload"
	"github.com/paraiso-astral/gate-service/internal/security"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Ticket     TicketConfig
	Validation ValidationConfig
	Kafka      KafkaConfig
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
	Addr         string
	Password     string
	DB           int
	BlacklistKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// TicketConfig holds issuance parameters. The signing secret never leaves
// this service.
type TicketConfig struct {
	SigningSecret string
	Issuer        string
	Versions      []string
	SerialPrefix  string
	MaxAge        time.Duration
}

// ValidationConfig holds gate policy constants.
type ValidationConfig struct {
	CacheSize           int
	CacheTTL            time.Duration
	HistorySize         int
	HistoryRetention    time.Duration
	ReplayWindow        time.Duration
	OnlineTimeout       time.Duration
	BlacklistRefresh    time.Duration
	OnlineOpportunistic bool
}

// KafkaConfig configures the admission event sink. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
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
			Name:                  getEnv("APP_NAME", "gate-service"),
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
			Addr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			BlacklistKey: getEnv("REDIS_BLACKLIST_KEY", "gate:blacklist"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Ticket: TicketConfig{
			SigningSecret: os.Getenv("TICKET_SIGNING_SECRET"),
			Issuer:        getEnv("TICKET_ISSUER", payload.DefaultIssuer),
			Versions:      getEnvAsList("TICKET_SUPPORTED_VERSIONS", []string{payload.Version}),
			SerialPrefix:  getEnv("TICKET_SERIAL_PREFIX", "PA"),
			MaxAge:        getEnvAsDuration("TICKET_MAX_AGE", 365*24*time.Hour),
		},
		Validation: ValidationConfig{
			CacheSize:           getEnvAsInt("VALIDATION_CACHE_SIZE", 1000),
			CacheTTL:            getEnvAsDuration("VALIDATION_CACHE_TTL", 5*time.Minute),
			HistorySize:         getEnvAsInt("VALIDATION_HISTORY_SIZE", 10),
			HistoryRetention:    getEnvAsDuration("VALIDATION_HISTORY_RETENTION", 24*time.Hour),
			ReplayWindow:        getEnvAsDuration("VALIDATION_REPLAY_WINDOW", time.Minute),
			OnlineTimeout:       getEnvAsDuration("VALIDATION_ONLINE_TIMEOUT", 3*time.Second),
			BlacklistRefresh:    getEnvAsDuration("BLACKLIST_REFRESH_INTERVAL", time.Minute),
			OnlineOpportunistic: getEnvAsBool("VALIDATION_ONLINE_OPPORTUNISTIC", true),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "gate.admissions"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Ticket.SigningSecret) < security.MinSecretLength {
		errs = append(errs, fmt.Errorf("TICKET_SIGNING_SECRET: %w", security.ErrWeakSecret))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Ticket.MaxAge <= 0 {
		errs = append(errs, errors.New("TICKET_MAX_AGE must be positive"))
	}
	if c.Validation.CacheSize <= 0 {
		errs = append(errs, errors.New("VALIDATION_CACHE_SIZE must be positive"))
	}
	if c.Validation.HistorySize <= 0 {
		errs = append(errs, errors.New("VALIDATION_HISTORY_SIZE must be positive"))
	}
	if c.Validation.OnlineTimeout <= 0 {
		errs = append(errs, errors.New("VALIDATION_ONLINE_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
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
	return out
}
