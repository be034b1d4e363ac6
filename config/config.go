// Package config loads the service configuration from defaults, an optional
// YAML or TOML file, a .env file and environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable holding an explicit config file path.
const ConfigPathEnv = "TODOMANAGER_CONFIG"

// Body size limit bounds.
const (
	DefaultBodySizeLimit int64 = 1 * 1024 * 1024
	MinBodySizeLimit     int64 = 1 * 1024
	MaxBodySizeLimit     int64 = 100 * 1024 * 1024
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Compat  CompatConfig  `yaml:"compat" toml:"compat"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	Audit   AuditConfig   `yaml:"audit" toml:"audit"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port" toml:"port"`

	// BodySizeLimit accepts a plain byte count or a K/M suffix, e.g. "1M".
	BodySizeLimit string `yaml:"body_size_limit" toml:"body_size_limit"`

	// Compression gzips responses for clients that accept it.
	Compression bool `yaml:"compression" toml:"compression"`

	// SwaggerEnabled serves the API document and UI under /swagger/.
	SwaggerEnabled bool `yaml:"swagger_enabled" toml:"swagger_enabled"`
}

// StoreConfig controls the in-memory entity store.
type StoreConfig struct {
	// Seed loads the sample todos, project and categories at startup.
	Seed bool `yaml:"seed" toml:"seed"`
}

// CompatConfig toggles behaviour kept for existing clients.
type CompatConfig struct {
	// LenientCategoryRelations makes relationship listings under an unknown
	// category answer 200 with an empty list instead of 404.
	LenientCategoryRelations bool `yaml:"lenient_category_relations" toml:"lenient_category_relations"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format" toml:"format"` // "json" or "pretty"
	Level  string `yaml:"level" toml:"level"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
}

// AuditConfig configures the request journal.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" toml:"enabled"`
	LogBodies  bool `yaml:"log_bodies" toml:"log_bodies"`
	LogHeaders bool `yaml:"log_headers" toml:"log_headers"`
	BufferSize int  `yaml:"buffer_size" toml:"buffer_size"`

	// FlushInterval is in seconds.
	FlushInterval int `yaml:"flush_interval" toml:"flush_interval"`

	// RetentionDays of 0 keeps entries forever.
	RetentionDays int `yaml:"retention_days" toml:"retention_days"`
}

// StorageConfig selects the backend the request journal writes to.
type StorageConfig struct {
	Type       string           `yaml:"type" toml:"type"` // sqlite, postgresql, mongodb
	SQLite     SQLiteConfig     `yaml:"sqlite" toml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql" toml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb" toml:"mongodb"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// PostgreSQLConfig holds PostgreSQL settings.
type PostgreSQLConfig struct {
	URL      string `yaml:"url" toml:"url"`
	MaxConns int    `yaml:"max_conns" toml:"max_conns"`
}

// MongoDBConfig holds MongoDB settings.
type MongoDBConfig struct {
	URL      string `yaml:"url" toml:"url"`
	Database string `yaml:"database" toml:"database"`
}

// LoadResult is what Load returns: the merged configuration and the file it
// was read from, if any.
type LoadResult struct {
	Config *Config
	Path   string
}

// BodySizeLimitBytes returns the parsed body limit, falling back to the default.
func (c *Config) BodySizeLimitBytes() int64 {
	n, err := parseBodySizeLimit(c.Server.BodySizeLimit)
	if err != nil || n == 0 {
		return DefaultBodySizeLimit
	}
	return n
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "4567",
			BodySizeLimit: "1M",
		},
		Store:  StoreConfig{Seed: true},
		Compat: CompatConfig{LenientCategoryRelations: true},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Audit: AuditConfig{
			Enabled:       false,
			BufferSize:    1000,
			FlushInterval: 5,
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Type:       "sqlite",
			SQLite:     SQLiteConfig{Path: "data/todomanager.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "todomanager"},
		},
	}
}

// Load resolves the config file from TODOMANAGER_CONFIG, falling back to
// config.yaml or config.toml in the working directory, and merges it with
// the environment. A missing file is not an error.
func Load() (*LoadResult, error) {
	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		for _, candidate := range []string{"config.yaml", "config.yml", "config.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. An empty path skips the file layer.
func LoadFile(path string) (*LoadResult, error) {
	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := buildDefaultConfig()
	if path != "" {
		if err := readConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &LoadResult{Config: cfg, Path: path}, nil
}

func readConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	expanded := expandString(string(raw))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server.port %q: must be numeric", c.Server.Port)
	}
	if err := ValidateBodySizeLimit(c.Server.BodySizeLimit); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("invalid log.format %q: expected json or pretty", c.Log.Format)
	}
	switch c.Storage.Type {
	case "", "sqlite", "postgresql", "mongodb":
	default:
		return fmt.Errorf("invalid storage.type %q", c.Storage.Type)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. An unset ${VAR} without
// a default is left as written.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if value, ok := os.LookupEnv(name); ok && value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return match
	})
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")
	setString(&cfg.Storage.Type, "STORAGE_TYPE")
	setString(&cfg.Storage.SQLite.Path, "SQLITE_PATH")
	setString(&cfg.Storage.PostgreSQL.URL, "POSTGRES_URL")
	setString(&cfg.Storage.MongoDB.URL, "MONGODB_URL")
	setString(&cfg.Storage.MongoDB.Database, "MONGODB_DATABASE")

	bools := []struct {
		dst *bool
		key string
	}{
		{&cfg.Server.Compression, "SERVER_COMPRESSION"},
		{&cfg.Server.SwaggerEnabled, "SWAGGER_ENABLED"},
		{&cfg.Store.Seed, "STORE_SEED"},
		{&cfg.Compat.LenientCategoryRelations, "COMPAT_LENIENT_CATEGORY_RELATIONS"},
		{&cfg.Metrics.Enabled, "METRICS_ENABLED"},
		{&cfg.Audit.Enabled, "AUDIT_ENABLED"},
		{&cfg.Audit.LogBodies, "AUDIT_LOG_BODIES"},
		{&cfg.Audit.LogHeaders, "AUDIT_LOG_HEADERS"},
	}
	for _, b := range bools {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.Audit.BufferSize, "AUDIT_BUFFER_SIZE"},
		{&cfg.Audit.FlushInterval, "AUDIT_FLUSH_INTERVAL"},
		{&cfg.Audit.RetentionDays, "AUDIT_RETENTION_DAYS"},
		{&cfg.Storage.PostgreSQL.MaxConns, "POSTGRES_MAX_CONNS"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not a boolean", key, v)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q is not an integer", key, v)
	}
	*dst = parsed
	return nil
}

var bodySizePattern = regexp.MustCompile(`^(\d+)([KkMm][Bb]?)?$`)

func parseBodySizeLimit(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	m := bodySizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid body size limit %q: expected a byte count or a K/M suffix", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid body size limit %q: %w", s, err)
	}
	switch strings.TrimSuffix(strings.ToUpper(m[2]), "B") {
	case "K":
		n *= 1024
	case "M":
		n *= 1024 * 1024
	}
	return n, nil
}

// ValidateBodySizeLimit accepts an empty string or a size between 1KB and 100MB.
func ValidateBodySizeLimit(s string) error {
	n, err := parseBodySizeLimit(s)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if n < MinBodySizeLimit {
		return fmt.Errorf("body size limit %q is below the minimum of 1KB", s)
	}
	if n > MaxBodySizeLimit {
		return fmt.Errorf("body size limit %q exceeds the maximum of 100MB", s)
	}
	return nil
}
