package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/spf13/viper"
)

// serverConfig is the process configuration, read from the environment and an
// optional .env file.
type serverConfig struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBUsername    string `mapstructure:"DB_USERNAME"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        int    `mapstructure:"DB_PORT"`
	DBDatabase    string `mapstructure:"DB_DATABASE"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBPath        string `mapstructure:"DB_PATH"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisUsername string `mapstructure:"REDIS_USERNAME"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisDatabase int    `mapstructure:"REDIS_DATABASE"`

	ServerAddr      string        `mapstructure:"SERVER_ADDR"`
	ServerPort      int           `mapstructure:"SERVER_PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	JWTAccessSecret  string        `mapstructure:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET"`
	JWTAccessExpiry  time.Duration `mapstructure:"JWT_ACCESS_EXPIRY"`
	JWTRefreshExpiry time.Duration `mapstructure:"JWT_REFRESH_EXPIRY"`
	JWTIssuer        string        `mapstructure:"JWT_ISSUER"`

	BotToken          string        `mapstructure:"BOT_TOKEN"`
	InitDataMaxAge    time.Duration `mapstructure:"INIT_DATA_MAX_AGE"`
	InternalSecretKey string        `mapstructure:"INTERNAL_SECRET_KEY"`

	SessionPatchPolicy string `mapstructure:"SESSION_PATCH_POLICY"`
	RevocationEnabled  bool   `mapstructure:"REVOCATION_ENABLED"`
	RateLimitEnabled   bool   `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitFailClose bool   `mapstructure:"RATE_LIMIT_FAIL_CLOSED"`
	AuditEnabled       bool   `mapstructure:"AUDIT_ENABLED"`
	MetricsEnabled     bool   `mapstructure:"METRICS_ENABLED"`
	LatencyHistograms  bool   `mapstructure:"METRICS_LATENCY"`
}

func loadConfig() (*serverConfig, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_USERNAME", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_DATABASE", "")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "miniauth.db")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_USERNAME", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DATABASE", 0)
	v.SetDefault("SERVER_ADDR", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRY", "168h")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("INIT_DATA_MAX_AGE", "0s")
	v.SetDefault("INTERNAL_SECRET_KEY", "")
	v.SetDefault("SESSION_PATCH_POLICY", "overwrite")
	v.SetDefault("REVOCATION_ENABLED", false)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_FAIL_CLOSED", false)
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_LATENCY", false)

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BotToken == "" {
		return nil, errors.New("config: BOT_TOKEN must be set")
	}
	if cfg.InternalSecretKey == "" {
		return nil, errors.New("config: INTERNAL_SECRET_KEY must be set")
	}
	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBDatabase == "" {
			return nil, errors.New("config: DB_DATABASE must be set for postgres")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return &cfg, nil
}

// listenAddr joins SERVER_ADDR and SERVER_PORT.
func (c *serverConfig) listenAddr() string {
	return net.JoinHostPort(c.ServerAddr, strconv.Itoa(c.ServerPort))
}

// postgresDSN builds a postgres:// URL with escaped credentials.
func (c *serverConfig) postgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUsername, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBDatabase,
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DBSSLMode}}.Encode()
	}
	return u.String()
}

func (c *serverConfig) redisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// engineConfig maps the process settings onto the engine configuration.
func (c *serverConfig) engineConfig() (goMiniAuth.Config, error) {
	policy, err := goMiniAuth.ParsePatchPolicy(c.SessionPatchPolicy)
	if err != nil {
		return goMiniAuth.Config{}, err
	}

	cfg := goMiniAuth.DefaultConfig()
	cfg.Platform.BotToken = c.BotToken
	cfg.Platform.MaxAuthAge = c.InitDataMaxAge
	cfg.JWT.AccessSecret = []byte(c.JWTAccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.JWTRefreshSecret)
	cfg.JWT.AccessTTL = c.JWTAccessExpiry
	cfg.JWT.RefreshTTL = c.JWTRefreshExpiry
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.Session.PatchPolicy = policy
	cfg.Revocation.Enabled = c.RevocationEnabled
	cfg.RateLimit.Enabled = c.RateLimitEnabled
	cfg.RateLimit.FailClosed = c.RateLimitFailClose
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return goMiniAuth.Config{}, err
	}
	return cfg, nil
}
