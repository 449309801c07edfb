package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    int
	AppEnv     string
	AppBaseURL string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSchema   string

	RedisHost     string
	RedisPort     int
	RedisPassword string

	CachePrefix    string
	ModuleCacheTTL time.Duration

	LogFile  string
	LogLevel string

	PagesDir        string
	RulesFile       string
	AuditLogEnabled bool
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		AppBaseURL:       strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresUser:     getEnv("POSTGRES_USER", "rbac_user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "erp"),
		PostgresSchema:   getEnv("POSTGRES_SCHEMA", "public"),
		RedisHost:        getEnv("REDIS_HOST", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		CachePrefix:      getEnv("CACHE_PREFIX", "rbac:"),
		LogFile:          getEnv("LOG_FILE", "app.log"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PagesDir:         getEnv("PAGES_DIR", "pages"),
		RulesFile:        getEnv("RULES_FILE", ""),
	}

	var err error
	if cfg.AppPort, err = getInt("APP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.PostgresPort, err = getInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.RedisPort, err = getInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.ModuleCacheTTL, err = getDuration("MODULE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AuditLogEnabled, err = getBool("AUDIT_LOG", true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN is the keyword/value connection string for lib/pq and pgx.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB)
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
