package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/dukerupert/alojadmin/internal/gateway"
)

// EnvPrefix is prepended to every environment variable the console reads.
const EnvPrefix = "ALOJADMIN"

// Config is the runtime configuration of the console server.
type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	LogFormat       string
	GatewayURL      string
	GatewayTimeout  time.Duration
	TokenSecret     string
	SessionTTL      time.Duration
	RefreshSchedule string
	Timezone        string
	CookieSecure    bool
	// OriginPatterns are extra hosts allowed to open the websocket.
	OriginPatterns []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "alojadmin.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("gateway_url", gateway.DefaultBaseURL)
	v.SetDefault("gateway_timeout", 15*time.Second)
	v.SetDefault("token_secret", "")
	v.SetDefault("session_ttl", 12*time.Hour)
	v.SetDefault("refresh_schedule", "@every 5m")
	v.SetDefault("timezone", "America/Mexico_City")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("origin_patterns", []string{})
}

// Load reads configuration from the environment, an optional .env file in the
// working directory, and an optional config file at path (YAML, TOML or JSON).
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:            strings.TrimSpace(v.GetString("port")),
		DBPath:          v.GetString("db_path"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		GatewayURL:      strings.TrimRight(v.GetString("gateway_url"), "/"),
		GatewayTimeout:  v.GetDuration("gateway_timeout"),
		TokenSecret:     v.GetString("token_secret"),
		SessionTTL:      v.GetDuration("session_ttl"),
		RefreshSchedule: strings.TrimSpace(v.GetString("refresh_schedule")),
		Timezone:        strings.TrimSpace(v.GetString("timezone")),
		CookieSecure:    v.GetBool("cookie_secure"),
		OriginPatterns:  v.GetStringSlice("origin_patterns"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("config: gateway_timeout must be positive, got %s", c.GatewayTimeout)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: unknown timezone %q: %w", c.Timezone, err)
	}
	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			return fmt.Errorf("config: invalid refresh_schedule %q: %w", c.RefreshSchedule, err)
		}
	}
	return nil
}

// Location returns the configured timezone, or UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
