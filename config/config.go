package config

import (
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	LogLevelDebug    = "DEBUG"
	LogLevelInfo     = "INFO"
	LogLevelWarning  = "WARNING"
	LogLevelError    = "ERROR"
	LogLevelCritical = "CRITICAL"
)

// DefaultSecretKey is the compiled-in development secret. Production
// configurations are rejected while it is still in use.
const DefaultSecretKey = "dev-secret-key-change-in-production"

const redactedValue = "**********"

type AppConfig struct {
	Name        string
	Version     string
	Debug       bool
	SecretKey   string
	Environment string
}

type ServerConfig struct {
	Host            string
	Port            int
	Reload          bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

type DocsConfig struct {
	DocsURL  string
	RedocURL string
}

type DependenciesConfig struct {
	DatabaseURL   string
	RedisURL      string
	GitServiceURL string
}

type HealthConfig struct {
	Enabled          bool
	Timeout          time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Config is the validated process configuration.
type Config struct {
	App          AppConfig
	Server       ServerConfig
	CORS         CORSConfig
	Logging      LoggingConfig
	Docs         DocsConfig
	Dependencies DependenciesConfig
	Health       HealthConfig
	RateLimit    RateLimitConfig
}

// EffectiveReload reports whether auto-reload may run. An explicit RELOAD is
// ignored unless DEBUG is also set.
func (c *Config) EffectiveReload() bool {
	return c.Server.Reload && c.App.Debug
}

// Addr returns the host:port the listener binds to.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// LogValue keeps the secret key out of every log line and masks credentials
// embedded in dependency URLs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("app", c.App.Name),
		slog.String("version", c.App.Version),
		slog.String("environment", c.App.Environment),
		slog.Bool("debug", c.App.Debug),
		slog.String("addr", c.Addr()),
		slog.Bool("reload", c.EffectiveReload()),
		slog.String("log_level", c.Logging.Level),
		slog.Any("allowed_origins", c.CORS.AllowedOrigins),
		slog.String("database_url", redactURL(c.Dependencies.DatabaseURL)),
		slog.String("redis_url", redactURL(c.Dependencies.RedisURL)),
		slog.Bool("health_checks", c.Health.Enabled),
	)
}

// Redacted returns every configured key with its effective value, suitable
// for printing. Secrets and URL passwords are masked.
func (c *Config) Redacted() map[string]any {
	out := make(map[string]any, len(schema))
	for _, f := range schema {
		out[f.key] = f.get(c)
	}

	out["SECRET_KEY"] = redactedValue
	out["DATABASE_URL"] = redactURL(c.Dependencies.DatabaseURL)
	out["REDIS_URL"] = redactURL(c.Dependencies.RedisURL)
	out["GIT_SERVICE_URL"] = redactURL(c.Dependencies.GitServiceURL)

	return out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}

	return u.Redacted()
}
