package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophtasks/internal/flagx"
	"github.com/dmitrijs2005/gophtasks/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "15m" or integer nanoseconds. Absent fields keep the
// value already in Config.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	JWTSecret                    string         `json:"jwt_secret"`
	JWTRefreshSecret             string         `json:"jwt_refresh_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	GoogleClientID               string         `json:"google_client_id"`
	GoogleClientSecret           string         `json:"google_client_secret"`
	GoogleCallbackURL            string         `json:"google_callback_url"`
	FrontendURL                  string         `json:"frontend_url"`
	CookieDomain                 string         `json:"cookie_domain"`
	Environment                  string         `json:"environment"`
	CORSOrigins                  []string       `json:"cors_origins"`
	CleanupSchedule              string         `json:"cleanup_schedule"`
	LogLevel                     string         `json:"log_level"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config. Without the flag nothing is loaded. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.JWTSecret, c.JWTSecret)
	overlay(&config.JWTRefreshSecret, c.JWTRefreshSecret)
	overlay(&config.GoogleClientID, c.GoogleClientID)
	overlay(&config.GoogleClientSecret, c.GoogleClientSecret)
	overlay(&config.GoogleCallbackURL, c.GoogleCallbackURL)
	overlay(&config.FrontendURL, c.FrontendURL)
	overlay(&config.CookieDomain, c.CookieDomain)
	overlay(&config.Environment, c.Environment)
	overlay(&config.CleanupSchedule, c.CleanupSchedule)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	overlay(&config.ShutdownTimeout, c.ShutdownTimeout.Duration)
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
