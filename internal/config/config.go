package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir    string        `mapstructure:"MIGRATIONS_DIR"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	ReportCacheTTL   time.Duration `mapstructure:"REPORT_CACHE_TTL"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL      string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	LoginURL         string        `mapstructure:"LOGIN_URL"`
	HomeURL          string        `mapstructure:"HOME_URL"`
	CORSOrigins      []string      `mapstructure:"-"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AuditSearchLimit int           `mapstructure:"AUDIT_SEARCH_LIMIT"`
	TLSEnabled       bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile      string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile       string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"REDIS_URL", "REPORT_CACHE_TTL",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"LOGIN_URL", "HOME_URL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"AUDIT_SEARCH_LIMIT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads .env when present, then the environment, which wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("REPORT_CACHE_TTL", "60s")
	v.SetDefault("LOGIN_URL", "/login")
	v.SetDefault("HOME_URL", "/")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("AUDIT_SEARCH_LIMIT", 200)

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to serve with. Outside
// development a token verification source is mandatory.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("one of AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is for development and tests, use AUTH_ISSUER in production")
	}
	if c.AuditSearchLimit <= 0 || c.AuditSearchLimit > 200 {
		return fmt.Errorf("AUDIT_SEARCH_LIMIT must be between 1 and 200, got %d", c.AuditSearchLimit)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}
