package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/flagx"
	"github.com/dmitrijs2005/eduportal/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Pointer fields distinguish an explicit false from an absent key.
type JsonConfig struct {
	Env      string `json:"env"`
	LogLevel string `json:"log_level"`
	HTTPAddr string `json:"http_addr"`

	StoreDriver   string `json:"store_driver"`
	DatabaseDSN   string `json:"database_dsn"`
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`
	RedisURL      string `json:"redis_url"`

	SessionSecret  string         `json:"session_secret"`
	SessionSigning *bool          `json:"session_signing"`
	SessionTTL     timex.Duration `json:"session_ttl"`
	CookieSecure   *bool          `json:"cookie_secure"`
	BcryptCost     int            `json:"bcrypt_cost"`

	MinPasswordLength int `json:"min_password_length"`

	ResetTokenTTL    timex.Duration `json:"reset_token_ttl"`
	ExposeResetToken *bool          `json:"expose_reset_token"`
	ResetURLBase     string         `json:"reset_url_base"`

	Notifier     string `json:"notifier"`
	SMTPAddr     string `json:"smtp_addr"`
	SMTPFrom     string `json:"smtp_from"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`

	RateLimitBackend  string         `json:"rate_limit_backend"`
	RateLimitRequests *int           `json:"rate_limit_requests"`
	RateLimitWindow   timex.Duration `json:"rate_limit_window"`

	CORSAllowedOrigins []string `json:"cors_allowed_origins"`

	ProtectedPrefixes []string `json:"protected_prefixes"`
	LoginPath         string   `json:"login_path"`
	LandingPath       string   `json:"landing_path"`
	AssetsDir         string   `json:"assets_dir"`
}

// parseJson overlays the JSON file named by -c/-config onto config. Keys
// missing from the file keep their current value. An unreadable or invalid
// file panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.Env, c.Env)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.HTTPAddr, c.HTTPAddr)

	setString(&config.StoreDriver, c.StoreDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.RedisURL, c.RedisURL)

	setString(&config.SessionSecret, c.SessionSecret)
	setBool(&config.SessionSigning, c.SessionSigning)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setBool(&config.CookieSecure, c.CookieSecure)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.MinPasswordLength != 0 {
		config.MinPasswordLength = c.MinPasswordLength
	}

	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	setBool(&config.ExposeResetToken, c.ExposeResetToken)
	setString(&config.ResetURLBase, c.ResetURLBase)

	setString(&config.Notifier, c.Notifier)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)

	setString(&config.RateLimitBackend, c.RateLimitBackend)
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)

	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	if c.ProtectedPrefixes != nil {
		config.ProtectedPrefixes = c.ProtectedPrefixes
	}
	setString(&config.LoginPath, c.LoginPath)
	setString(&config.LandingPath, c.LandingPath)
	setString(&config.AssetsDir, c.AssetsDir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
