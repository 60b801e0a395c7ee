package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	KurrentDB     KurrentDBConfig     `mapstructure:"kurrentdb"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	NATS          NATSConfig          `mapstructure:"nats"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL returns the connection string in URL form, as the migrator expects.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	// Enabled turns on publishing of case events
	Enabled bool `mapstructure:"enabled"`
	// Host is the KurrentDB server hostname
	Host string `mapstructure:"host"`
	// Port is the gRPC/HTTP port (default 2113)
	Port int `mapstructure:"port"`
	// Insecure disables TLS (for development)
	Insecure bool `mapstructure:"insecure"`
	// Username for authentication (optional)
	Username string `mapstructure:"username"`
	// Password for authentication (optional)
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	Issuer       string        `mapstructure:"issuer"`
	RoleCacheTTL time.Duration `mapstructure:"role_cache_ttl"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type NATSConfig struct {
	// URL of the NATS server; empty disables the push provider
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	// Addr of the Redis server; empty disables the principal cache
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NotificationsConfig struct {
	Workers int `mapstructure:"workers"`
	Buffer  int `mapstructure:"buffer"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"server.port":             "SERVER_PORT",
	"server.env":              "ENV",
	"server.read_timeout":     "SERVER_READ_TIMEOUT",
	"server.write_timeout":    "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.database":       "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"database.max_conns":      "DB_MAX_CONNS",
	"database.min_conns":      "DB_MIN_CONNS",
	"kurrentdb.enabled":       "KURRENTDB_ENABLED",
	"kurrentdb.host":          "KURRENTDB_HOST",
	"kurrentdb.port":          "KURRENTDB_PORT",
	"kurrentdb.insecure":      "KURRENTDB_INSECURE",
	"kurrentdb.username":      "KURRENTDB_USERNAME",
	"kurrentdb.password":      "KURRENTDB_PASSWORD",
	"auth.jwt_secret":         "JWT_SECRET",
	"auth.issuer":             "JWT_ISSUER",
	"auth.role_cache_ttl":     "ROLE_CACHE_TTL",
	"logging.level":           "LOG_LEVEL",
	"nats.url":                "NATS_URL",
	"redis.addr":              "REDIS_ADDR",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"notifications.workers":   "NOTIFY_WORKERS",
	"notifications.buffer":    "NOTIFY_BUFFER",
	"rate_limit.rps":          "RATE_LIMIT_RPS",
	"rate_limit.burst":        "RATE_LIMIT_BURST",
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "platform")
	v.SetDefault("database.password", "platform")
	v.SetDefault("database.database", "platform")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("kurrentdb.enabled", false)
	v.SetDefault("kurrentdb.host", "localhost")
	v.SetDefault("kurrentdb.port", 2113)
	v.SetDefault("kurrentdb.insecure", true)
	v.SetDefault("auth.jwt_secret", "dev-secret-change-in-prod")
	v.SetDefault("auth.issuer", "citypd")
	v.SetDefault("auth.role_cache_ttl", "5m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("notifications.workers", 4)
	v.SetDefault("notifications.buffer", 256)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/citypd")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.IsProduction() && cfg.Auth.JWTSecret == "dev-secret-change-in-prod" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	return &cfg, nil
}
