// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with MOVIECLUB_STORE.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string

	Store          string
	DBPath         string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	CatalogBaseURL       string
	CatalogLanguage      string
	CatalogTimeout       time.Duration
	CatalogHTTPCache     bool
	CatalogSecretID      string
	CatalogSecretJSONKey string
	CatalogAPIKey        string

	// SecretKey is the AES-256 key for the encrypted credential table. Nil
	// when MOVIECLUB_SECRET_KEY is unset.
	SecretKey []byte

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	EnrichConcurrency int

	LogLevel  slog.Level
	LogFormat string
}

// HasSecretKey reports whether credentials are kept in the encrypted table
// rather than read from MOVIECLUB_CATALOG_API_KEY on every fetch.
func (c *Config) HasSecretKey() bool {
	return len(c.SecretKey) > 0
}

// Load reads configuration from environment variables and returns a validated Config.
// MOVIECLUB_JWT_SECRET is required, as is MOVIECLUB_POSTGRES_DSN when the store
// is postgres. Everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:           envOr("MOVIECLUB_LISTEN_ADDR", "127.0.0.1:8080"),
		Store:                strings.ToLower(envOr("MOVIECLUB_STORE", StoreSQLite)),
		DBPath:               envOr("MOVIECLUB_DB_PATH", "movieclub.db"),
		PostgresDSN:          os.Getenv("MOVIECLUB_POSTGRES_DSN"),
		RedisAddr:            envOr("MOVIECLUB_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("MOVIECLUB_REDIS_PASSWORD"),
		RedisKeyPrefix:       envOr("MOVIECLUB_REDIS_KEY_PREFIX", "movieclub"),
		CatalogBaseURL:       envOr("MOVIECLUB_CATALOG_BASE_URL", "https://api.themoviedb.org/3"),
		CatalogLanguage:      envOr("MOVIECLUB_CATALOG_LANGUAGE", "en-US"),
		CatalogSecretID:      envOr("MOVIECLUB_CATALOG_SECRET_ID", "tmdb"),
		CatalogSecretJSONKey: envOr("MOVIECLUB_CATALOG_SECRET_JSON_KEY", "api_key"),
		CatalogAPIKey:        os.Getenv("MOVIECLUB_CATALOG_API_KEY"),
		JWTSecret:            os.Getenv("MOVIECLUB_JWT_SECRET"),
		JWTIssuer:            os.Getenv("MOVIECLUB_JWT_ISSUER"),
		JWTAudience:          os.Getenv("MOVIECLUB_JWT_AUDIENCE"),
		LogFormat:            strings.ToLower(envOr("MOVIECLUB_LOG_FORMAT", "text")),
	}

	switch cfg.Store {
	case StoreSQLite, StoreRedis:
	case StorePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("MOVIECLUB_POSTGRES_DSN is required when MOVIECLUB_STORE is %q", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("MOVIECLUB_STORE has unsupported value %q (want sqlite, postgres or redis)", cfg.Store)
	}

	redisDB := 0
	if v, ok := os.LookupEnv("MOVIECLUB_REDIS_DB"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("MOVIECLUB_REDIS_DB has invalid value %q", v)
		}
		redisDB = parsed
	}
	cfg.RedisDB = redisDB

	if u, err := url.Parse(cfg.CatalogBaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("MOVIECLUB_CATALOG_BASE_URL must be an absolute URL, got %q", cfg.CatalogBaseURL)
	}

	catalogTimeout := 10 * time.Second
	if v, ok := os.LookupEnv("MOVIECLUB_CATALOG_TIMEOUT"); ok && v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MOVIECLUB_CATALOG_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("MOVIECLUB_CATALOG_TIMEOUT must be positive, got %s", parsed)
		}
		catalogTimeout = parsed
	}
	cfg.CatalogTimeout = catalogTimeout

	httpCache := true
	if v, ok := os.LookupEnv("MOVIECLUB_CATALOG_HTTP_CACHE"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MOVIECLUB_CATALOG_HTTP_CACHE has invalid boolean %q: %w", v, err)
		}
		httpCache = parsed
	}
	cfg.CatalogHTTPCache = httpCache

	if v, ok := os.LookupEnv("MOVIECLUB_SECRET_KEY"); ok && v != "" {
		key, err := parseSecretKey(v)
		if err != nil {
			return nil, err
		}
		cfg.SecretKey = key
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("MOVIECLUB_JWT_SECRET is required")
	}

	concurrency := 8
	if v, ok := os.LookupEnv("MOVIECLUB_ENRICH_CONCURRENCY"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("MOVIECLUB_ENRICH_CONCURRENCY must be a positive integer, got %q", v)
		}
		concurrency = parsed
	}
	cfg.EnrichConcurrency = concurrency

	level, err := parseLogLevel(envOr("MOVIECLUB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("MOVIECLUB_LOG_FORMAT has unsupported value %q (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

// CredentialConfig is the subset of configuration the credential admin
// commands need.
type CredentialConfig struct {
	DBPath          string
	SecretKey       []byte
	CatalogSecretID string
}

// LoadCredentials reads the database path and encryption key for managing the
// encrypted credential table. MOVIECLUB_SECRET_KEY is required here since the
// table is unreadable without it.
func LoadCredentials() (*CredentialConfig, error) {
	v, ok := os.LookupEnv("MOVIECLUB_SECRET_KEY")
	if !ok || strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("MOVIECLUB_SECRET_KEY is required to manage stored credentials")
	}
	key, err := parseSecretKey(v)
	if err != nil {
		return nil, err
	}

	return &CredentialConfig{
		DBPath:          envOr("MOVIECLUB_DB_PATH", "movieclub.db"),
		SecretKey:       key,
		CatalogSecretID: envOr("MOVIECLUB_CATALOG_SECRET_ID", "tmdb"),
	}, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// parseSecretKey accepts 64 hex characters or standard base64, decoding to 32 bytes.
func parseSecretKey(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if key, err := hex.DecodeString(v); err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("MOVIECLUB_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("MOVIECLUB_SECRET_KEY must be hex or base64 encoded")
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("MOVIECLUB_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func parseLogLevel(v string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("MOVIECLUB_LOG_LEVEL has invalid value %q: %w", v, err)
	}
	return level, nil
}
