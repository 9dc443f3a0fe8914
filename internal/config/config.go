package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"shortwave/pkg/validator"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Store    StoreConfig
	Auth     AuthConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// SQLiteConfig holds the SQLite database location
type SQLiteConfig struct {
	Path string
}

// StoreConfig selects the link store backend
type StoreConfig struct {
	Driver string
}

// AuthConfig holds the shared secret of the identity provider
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment        string
	LogLevel           string
	LogFormat          string
	BaseURL            string
	ShortIDLength      int
	ShortIDMaxAttempts int
	RateLimitEnabled   bool
	RateLimitPerMinute int
	EnableMetrics      bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("SERVER_PORT", "8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    parseDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:     parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
			RequestTimeout:  parseDuration("SERVER_REQUEST_TIMEOUT", "5s"),
			ShutdownTimeout: parseDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "shortwave"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "shortwave"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        parseInt("DB_MAX_CONNS", 25),
			MinConns:        parseInt("DB_MIN_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
			AutoMigrate:     parseBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			PoolSize: parseInt("REDIS_POOL_SIZE", 20),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "shortwave.db"),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", DriverPostgres),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: os.Getenv("JWT_ISSUER"),
		},
		App: AppConfig{
			Environment:        getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			LogFormat:          getEnv("LOG_FORMAT", "json"),
			BaseURL:            getEnv("BASE_URL", "http://localhost:"+port),
			ShortIDLength:      parseInt("SHORT_ID_LENGTH", 7),
			ShortIDMaxAttempts: parseInt("SHORT_ID_MAX_ATTEMPTS", 5),
			RateLimitEnabled:   parseBool("RATE_LIMIT_ENABLED", false),
			RateLimitPerMinute: parseInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 30),
			EnableMetrics:      parseBool("ENABLE_METRICS", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverRedis, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, redis, sqlite; got %q", c.Store.Driver))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.App.ShortIDLength <= 0 || c.App.ShortIDLength > validator.MaxAliasLength {
		errs = append(errs, fmt.Errorf("SHORT_ID_LENGTH must be between 1 and %d, got %d", validator.MaxAliasLength, c.App.ShortIDLength))
	}
	if c.App.ShortIDMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("SHORT_ID_MAX_ATTEMPTS must be positive, got %d", c.App.ShortIDMaxAttempts))
	}
	if c.App.RateLimitEnabled && c.App.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive, got %d", c.App.RateLimitPerMinute))
	}
	if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.App.BaseURL))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string in URL form, which
// both pgx and golang-migrate accept.
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// RedisAddr returns the Redis address in host:port format
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
