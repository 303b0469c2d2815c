package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophtasks/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays values from process environment variables.
//
// A dotenv file is loaded first: the one named by -env-file, or ./.env when
// present. Variables already set in the process win over the file.
func parseEnv(config *Config) {
	if path := flagx.EnvFilePath(os.Args[1:]); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.DBHost, "DB_HOST")
	setString(&config.DBPort, "DB_PORT")
	setString(&config.DBUser, "DB_USER")
	setString(&config.DBPassword, "DB_PASSWORD")
	setString(&config.DBName, "DB_NAME")
	setString(&config.JWTSecret, "JWT_SECRET")
	setString(&config.JWTRefreshSecret, "JWT_REFRESH_SECRET")
	setString(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	setString(&config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&config.GoogleCallbackURL, "GOOGLE_CALLBACK_URL")
	setString(&config.FrontendURL, "FRONTEND_URL")
	setString(&config.CookieDomain, "COOKIE_DOMAIN")
	setString(&config.Environment, "NODE_ENV")
	setString(&config.CleanupSchedule, "CLEANUP_SCHEDULE")
	setString(&config.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
}

// setString assigns the variable only when it is set. An explicitly empty
// value clears the default.
func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
