package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/guillermoBallester/plumbline/internal/core/domain"
	"github.com/ilyakaznacheev/cleanenv"
)

// Host defaults differ per command: init registers the datasource from the
// operator's machine, profiling runs next to the database container.
const (
	HostInit    = "localhost"
	HostProfile = "postgres"
)

// DatasourceConfig holds the GX_DATASOURCE_* connection settings.
type DatasourceConfig struct {
	Type     string `env:"GX_DATASOURCE_TYPE" env-default:"postgres"`
	Host     string `env:"GX_DATASOURCE_HOST"`
	Port     string `env:"GX_DATASOURCE_PORT" env-default:"5432"`
	User     string `env:"GX_DATASOURCE_USER" env-default:"postgres"`
	Password string `env:"GX_DATASOURCE_PASSWORD" env-default:"postgres"`
	Database string `env:"GX_DATASOURCE_DATABASE" env-default:"tpcc"`
}

// ConnectionString renders the settings as a driver URL. No validation is
// done beyond escaping the user info.
func (d DatasourceConfig) ConnectionString() string {
	u := url.URL{
		User: url.UserPassword(d.User, d.Password),
		Host: net.JoinHostPort(d.Host, d.Port),
	}
	if d.Type == string(domain.DatasourceSQLServer) {
		u.Scheme = "sqlserver"
		u.RawQuery = url.Values{"database": {d.Database}}.Encode()
		return u.String()
	}
	u.Scheme = "postgres"
	u.Path = "/" + d.Database
	return u.String()
}

type Config struct {
	Datasource     DatasourceConfig
	DatasourceName string `env:"GX_DATASOURCE_NAME" env-default:"tpcc_postgres"`

	// Project layout.
	ProjectRoot string `env:"GX_PROJECT_ROOT" env-default:"/app"`
	ProjectFile string `env:"PROJECT_FILE"` // optional; defaults to <root>/gx/project.yml

	// Logging.
	LogLevelName string `env:"LOG_LEVEL" env-default:"info"`
	LogLevel     slog.Level

	// Zero disables the statement timeout.
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" env-default:"0s"`

	// Connection pool.
	PoolMaxConns        int32         `env:"POOL_MAX_CONNS" env-default:"5"`
	PoolMinConns        int32         `env:"POOL_MIN_CONNS" env-default:"0"`
	PoolMaxConnLifetime time.Duration `env:"POOL_MAX_CONN_LIFETIME" env-default:"30m"`

	// Observability.
	OTelEnabled bool `env:"OTEL_ENABLED" env-default:"false"`

	// CLI-only fields (not settable via env vars).
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	ProjectRoot    *string
	ProjectFile    *string
	LogLevel       *string
	QueryTimeout   *time.Duration
	DatasourceType *string
	DatasourceName *string
	OTelEnabled    bool
	AuditLog       string
}

// StorePath is where the project database lives.
func (c *Config) StorePath() string {
	return filepath.Join(c.ProjectRoot, "gx", "plumbline.db")
}

// ProjectFilePath returns the explicit project file, or the default location
// under the project root.
func (c *Config) ProjectFilePath() string {
	if c.ProjectFile != "" {
		return c.ProjectFile
	}
	return filepath.Join(c.ProjectRoot, "gx", "project.yml")
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result. hostDefault is used when GX_DATASOURCE_HOST is
// unset.
func Load(hostDefault string, overrides Overrides) (*Config, error) {
	cfg := &Config{}
	cfg.Datasource.Host = hostDefault

	// env-default only fills zero fields, so the host default above survives.
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	level, err := parseLogLevel(cfg.LogLevelName)
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.ProjectRoot != nil {
		cfg.ProjectRoot = *o.ProjectRoot
	}
	if o.ProjectFile != nil {
		cfg.ProjectFile = *o.ProjectFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevelName = *o.LogLevel
		cfg.LogLevel = level
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.DatasourceType != nil {
		cfg.Datasource.Type = *o.DatasourceType
	}
	if o.DatasourceName != nil {
		cfg.DatasourceName = *o.DatasourceName
	}

	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if _, err := domain.ParseDatasourceType(cfg.Datasource.Type); err != nil {
		return fmt.Errorf("invalid GX_DATASOURCE_TYPE value: %w", err)
	}
	if cfg.DatasourceName == "" {
		return fmt.Errorf("GX_DATASOURCE_NAME must not be empty")
	}
	if cfg.ProjectRoot == "" {
		return fmt.Errorf("GX_PROJECT_ROOT must not be empty (set via env var or --project-root flag)")
	}
	if cfg.QueryTimeout < 0 {
		return fmt.Errorf("invalid QUERY_TIMEOUT value %q: must not be negative", cfg.QueryTimeout)
	}
	if cfg.PoolMaxConns <= 0 {
		return fmt.Errorf("invalid POOL_MAX_CONNS value %d: must be a positive integer", cfg.PoolMaxConns)
	}
	if cfg.PoolMinConns < 0 {
		return fmt.Errorf("invalid POOL_MIN_CONNS value %d: must be a non-negative integer", cfg.PoolMinConns)
	}
	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
