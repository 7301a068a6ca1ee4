package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the server reads,
// e.g. EDUPORTAL_DATABASE_DSN.
const EnvPrefix = "EDUPORTAL_"

// parseEnv overlays EDUPORTAL_* variables onto config. A dotenv file named
// by -env-file must exist; otherwise ./.env is loaded when present. Values
// already in the process environment win over the file.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	lookupString("ENV", &config.Env)
	lookupString("LOG_LEVEL", &config.LogLevel)
	lookupString("HTTP_ADDR", &config.HTTPAddr)

	lookupString("STORE_DRIVER", &config.StoreDriver)
	lookupString("DATABASE_DSN", &config.DatabaseDSN)
	lookupString("MONGO_URI", &config.MongoURI)
	lookupString("MONGO_DATABASE", &config.MongoDatabase)
	lookupString("REDIS_URL", &config.RedisURL)

	lookupString("SESSION_SECRET", &config.SessionSecret)
	lookupBool("SESSION_SIGNING", &config.SessionSigning)
	lookupDuration("SESSION_TTL", &config.SessionTTL)
	lookupBool("COOKIE_SECURE", &config.CookieSecure)
	lookupInt("BCRYPT_COST", &config.BcryptCost)
	lookupInt("MIN_PASSWORD_LENGTH", &config.MinPasswordLength)

	lookupDuration("RESET_TOKEN_TTL", &config.ResetTokenTTL)
	lookupBool("EXPOSE_RESET_TOKEN", &config.ExposeResetToken)
	lookupString("RESET_URL_BASE", &config.ResetURLBase)

	lookupString("NOTIFIER", &config.Notifier)
	lookupString("SMTP_ADDR", &config.SMTPAddr)
	lookupString("SMTP_FROM", &config.SMTPFrom)
	lookupString("SMTP_USERNAME", &config.SMTPUsername)
	lookupString("SMTP_PASSWORD", &config.SMTPPassword)

	lookupString("RATE_LIMIT_BACKEND", &config.RateLimitBackend)
	lookupInt("RATE_LIMIT_REQUESTS", &config.RateLimitRequests)
	lookupDuration("RATE_LIMIT_WINDOW", &config.RateLimitWindow)

	lookupList("CORS_ALLOWED_ORIGINS", &config.CORSAllowedOrigins)
	lookupList("PROTECTED_PREFIXES", &config.ProtectedPrefixes)
	lookupString("LOGIN_PATH", &config.LoginPath)
	lookupString("LANDING_PATH", &config.LandingPath)
	lookupString("ASSETS_DIR", &config.AssetsDir)
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		*dst = v
	}
}

// malformed numbers, booleans and durations panic like a bad JSON file does
func lookupBool(key string, dst *bool) {
	var s string
	lookupString(key, &s)
	if s == "" {
		return
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		panic(err)
	}
	*dst = v
}

func lookupInt(key string, dst *int) {
	var s string
	lookupString(key, &s)
	if s == "" {
		return
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	*dst = v
}

func lookupDuration(key string, dst *time.Duration) {
	var s string
	lookupString(key, &s)
	if s == "" {
		return
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	*dst = v
}

// lookupList splits a comma separated value, dropping blanks.
func lookupList(key string, dst *[]string) {
	var s string
	lookupString(key, &s)
	if s == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
