package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	DoctorCacheTTL time.Duration `mapstructure:"DOCTOR_CACHE_TTL"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	SessionCookie  string        `mapstructure:"SESSION_COOKIE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	SendGridAPIKey string        `mapstructure:"SENDGRID_API_KEY"`
	MailFrom       string        `mapstructure:"MAIL_FROM"`
	MailFromName   string        `mapstructure:"MAIL_FROM_NAME"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DOCTOR_CACHE_TTL", "5m")
	v.SetDefault("SESSION_COOKIE", "citamed_session")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MAIL_FROM_NAME", "CitaMed")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "DOCTOR_CACHE_TTL",
		"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "SESSION_COOKIE",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"SENDGRID_API_KEY", "MAIL_FROM", "MAIL_FROM_NAME",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.AuthSigningKey == "" && cfg.AuthJWKSURL == "" {
		log.Println("WARNING: Server is running in DEVELOPMENT mode without a session key.")
		log.Println("WARNING: Sessions are taken from X-Dev-User / X-Dev-Role headers.")
		log.Println("WARNING: Do NOT use this configuration in production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SessionMode reports how sessions are verified: "development" trusts the
// dev headers, "hmac" verifies tokens with AUTH_SIGNING_KEY and "jwks" fetches
// the issuer's signing keys, discovering them from AUTH_ISSUER when
// AUTH_JWKS_URL is not set.
func (c *Config) SessionMode() string {
	switch {
	case c.AuthSigningKey != "":
		return "hmac"
	case c.AuthJWKSURL != "", c.AuthIssuer != "":
		return "jwks"
	case c.IsDev():
		return "development"
	}
	return ""
}

// EmailEnabled reports whether booking confirmations go out through SendGrid.
func (c *Config) EmailEnabled() bool {
	return c.SendGridAPIKey != "" && c.MailFrom != ""
}

// Validate checks that the configuration is safe to run. Outside development a
// session verification key (or JWKS endpoint) is mandatory.
func (c *Config) Validate() error {
	if c.SessionMode() == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY, AUTH_ISSUER or AUTH_JWKS_URL must be set (current ENV=%q). "+
				"Refusing to start without session verification", c.Env)
	}
	if c.AuthJWKSURL != "" && c.AuthSigningKey == "" && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER is required when AUTH_JWKS_URL is set")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when RATE_LIMIT_RPS is set, got %d", c.RateLimitBurst)
	}
	if c.SendGridAPIKey != "" && c.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required when SENDGRID_API_KEY is set")
	}
	if c.DoctorCacheTTL < 0 {
		return fmt.Errorf("DOCTOR_CACHE_TTL must not be negative")
	}
	return nil
}
