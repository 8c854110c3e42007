// Package config loads service settings from the environment and an optional .env file
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port     string
	DataDir  string
	LogLevel string

	RatesAPIURL string
	GeoAPIURL   string

	// ClientLocale stands in for the visitor's locale when detecting a currency, e.g. "en-ZA"
	ClientLocale          string
	DetectWithGeolocation bool

	HTTPTimeout  time.Duration
	RatesTTL     time.Duration
	RateCacheTTL time.Duration

	CORSOrigins []string

	// Warnings collects settings that were invalid and replaced by defaults
	Warnings []string
}

var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"DATA_DIR":                "./data",
	"LOG_LEVEL":               "INFO",
	"RATES_API_URL":           "https://api.exchangerate.host",
	"GEO_API_URL":             "https://ipapi.co",
	"CLIENT_LOCALE":           "en-ZA",
	"DETECT_WITH_GEOLOCATION": true,
	"HTTP_TIMEOUT":            "10s",
	"RATES_TTL":               "24h",
	"RATE_CACHE_TTL":          "1h",
	"CORS_ORIGINS":            "*",
}

// LoadConfig loads configuration from environment variables and .env files if present.
// Environment variables win over .env values, which win over defaults.
func LoadConfig(envFiles ...string) (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Port:                  strings.TrimSpace(v.GetString("PORT")),
		DataDir:               v.GetString("DATA_DIR"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		RatesAPIURL:           v.GetString("RATES_API_URL"),
		GeoAPIURL:             v.GetString("GEO_API_URL"),
		ClientLocale:          v.GetString("CLIENT_LOCALE"),
		DetectWithGeolocation: v.GetBool("DETECT_WITH_GEOLOCATION"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		cfg.Warnings = append(cfg.Warnings, "PORT is empty, defaulting to 8080")
	}

	cfg.HTTPTimeout = cfg.duration(v, "HTTP_TIMEOUT")
	cfg.RatesTTL = cfg.duration(v, "RATES_TTL")
	cfg.RateCacheTTL = cfg.duration(v, "RATE_CACHE_TTL")

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}

	return cfg, nil
}

// duration parses key as a Go duration, falling back to its default when invalid
func (c *Config) duration(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err == nil && d >= 0 {
		return d
	}

	fallback, _ := time.ParseDuration(defaults[key].(string))
	c.Warnings = append(c.Warnings,
		fmt.Sprintf("invalid value for %s (%q), defaulting to %s", key, raw, fallback))
	return fallback
}
