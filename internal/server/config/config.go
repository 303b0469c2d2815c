// Package config handles configuration for the server component,
// including defaults, environment (.env), JSON overlay, and command-line flags.
package config

import (
	"net"
	"net/url"
	"time"
)

const productionEnv = "production"

// Config holds runtime settings for the gophtasks server.
//
// Fields:
//   - HTTPAddr: bind address of the REST endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). When empty, DSN() composes one from the DB* fields.
//   - JWTSecret: HMAC secret for signing access tokens (HS256).
//   - JWTRefreshSecret: accepted for deployment compatibility; refresh tokens are opaque.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - Google*: OAuth2 client settings.
//   - FrontendURL: base of the SPA that receives the login redirect.
//   - CookieDomain: domain attribute of the refresh_token cookie.
//   - Environment: NODE_ENV; "production" enables Secure and SameSite=Strict cookies.
type Config struct {
	HTTPAddr                     string
	DatabaseDSN                  string
	DBHost                       string
	DBPort                       string
	DBUser                       string
	DBPassword                   string
	DBName                       string
	JWTSecret                    string
	JWTRefreshSecret             string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	GoogleClientID               string
	GoogleClientSecret           string
	GoogleCallbackURL            string
	FrontendURL                  string
	CookieDomain                 string
	Environment                  string
	CORSOrigins                  []string
	CleanupSchedule              string
	LogLevel                     string
	ShutdownTimeout              time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure and must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.DBHost = "localhost"
	c.DBPort = "5432"
	c.DBUser = "postgres"
	c.DBPassword = "postgres"
	c.DBName = "gophtasks"
	c.JWTSecret = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.GoogleCallbackURL = "http://localhost:3000/auth/google/callback"
	c.FrontendURL = "http://localhost:5173"
	c.Environment = "development"
	c.CORSOrigins = []string{"http://localhost:5173"}
	c.CleanupSchedule = "@hourly"
	c.LogLevel = "info"
	c.ShutdownTimeout = 10 * time.Second
}

// IsProduction reports whether NODE_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == productionEnv
}

// DSN returns DatabaseDSN, or a postgres URL built from the DB* fields.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
