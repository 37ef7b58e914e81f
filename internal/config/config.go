package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Frontend FrontendConfig `yaml:"frontend"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schema   SchemaConfig   `yaml:"schema"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                   int    `yaml:"port"`
	Host                   string `yaml:"host"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	ConnectTimeoutSeconds  int    `yaml:"connect_timeout_seconds"`
	StatementTimeoutMillis int    `yaml:"statement_timeout_ms"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// DSN returns the connection string with the connect and statement timeouts
// applied. Values already present in URL win.
func (c DatabaseConfig) DSN() string {
	dsn := strings.TrimSpace(c.URL)
	if dsn == "" {
		return ""
	}
	params := map[string]string{}
	if c.ConnectTimeoutSeconds > 0 {
		params["connect_timeout"] = strconv.Itoa(c.ConnectTimeoutSeconds)
	}
	if c.StatementTimeoutMillis > 0 {
		params["statement_timeout"] = strconv.Itoa(c.StatementTimeoutMillis)
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		for k, v := range params {
			if q.Get(k) == "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	// key=value form
	for _, k := range []string{"connect_timeout", "statement_timeout"} {
		v, ok := params[k]
		if !ok || strings.Contains(dsn, k+"=") {
			continue
		}
		dsn += " " + k + "=" + v
	}
	return dsn
}

// FrontendConfig lists the browser origins allowed to call the API.
type FrontendConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig configures the optional list cache. The cache is off when
// neither URL nor Addr is set.
type RedisConfig struct {
	URL            string `yaml:"url"`
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	ListTTLSeconds int    `yaml:"list_ttl_seconds"`
	KeyPrefix      string `yaml:"key_prefix"`
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

func (c RedisConfig) ListTTL() time.Duration {
	return time.Duration(c.ListTTLSeconds) * time.Second
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Redact *bool  `yaml:"redact"`
}

// RedactEnabled defaults to true when unset.
func (c LoggingConfig) RedactEnabled() bool {
	return c.Redact == nil || *c.Redact
}

// SchemaConfig controls startup provisioning. Repository operations always
// provision on their own connection regardless of this flag.
type SchemaConfig struct {
	ProvisionOnStartup bool `yaml:"provision_on_startup"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	if cfg.Server.ShutdownTimeoutSeconds == 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}
	if cfg.Database.ConnectTimeoutSeconds == 0 {
		cfg.Database.ConnectTimeoutSeconds = 5
	}
	if cfg.Database.StatementTimeoutMillis == 0 {
		cfg.Database.StatementTimeoutMillis = 15000
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if len(cfg.Frontend.AllowedOrigins) == 0 {
		cfg.Frontend.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Redis.ListTTLSeconds == 0 {
		cfg.Redis.ListTTLSeconds = 60
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "person-registry"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads the config file, then applies environment overrides.
// A missing file is tolerated when DATABASE_URL is set.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || os.Getenv("DATABASE_URL") == "" {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("FRONTEND_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.Frontend.AllowedOrigins = origins
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("database url is required (database.url or DATABASE_URL)")
	}
	return cfg, nil
}
