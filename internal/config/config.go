package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the console.
type Config struct {
	AppName               string
	AppEnv                string
	AppPort               string
	LogLevel              string
	BackendURL            string
	BackendTimeout        time.Duration
	ContractCheck         bool
	EditHideDelay         time.Duration
	DueDateLayout         string
	Timezone              string
	RefetchAfterMutation  bool
	DatabaseURL           string
	RedisURL              string
	NATSURL               string
	EventsChannel         string
	EventsKeepAlive       time.Duration
	MutationRateLimit     int
	MutationRateLimitSpan time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Location resolves the display timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ROSTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Roster Console")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("backend.url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "0s")
	v.SetDefault("backend.contract_check", true)
	v.SetDefault("ui.edit_hide_delay", "1s")
	v.SetDefault("ui.due_date_layout", "1/2/2006, 3:04:05 PM")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("sync.refetch_after_mutation", false)
	v.SetDefault("events.channel", "roster:views")
	v.SetDefault("events.keepalive", "30s")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", "1m")

	backendTimeout, err := parseDuration(v, "backend.timeout", 0)
	if err != nil {
		return Config{}, err
	}
	hideDelay, err := parseDuration(v, "ui.edit_hide_delay", time.Second)
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "events.keepalive", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "rate_limit.window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		LogLevel:              strings.ToLower(v.GetString("log.level")),
		BackendURL:            strings.TrimRight(strings.TrimSpace(v.GetString("backend.url")), "/"),
		BackendTimeout:        backendTimeout,
		ContractCheck:         v.GetBool("backend.contract_check"),
		EditHideDelay:         hideDelay,
		DueDateLayout:         v.GetString("ui.due_date_layout"),
		Timezone:              v.GetString("ui.timezone"),
		RefetchAfterMutation:  v.GetBool("sync.refetch_after_mutation"),
		DatabaseURL:           strings.TrimSpace(v.GetString("database.url")),
		RedisURL:              strings.TrimSpace(v.GetString("redis.url")),
		NATSURL:               strings.TrimSpace(v.GetString("nats.url")),
		EventsChannel:         v.GetString("events.channel"),
		EventsKeepAlive:       keepAlive,
		MutationRateLimit:     v.GetInt("rate_limit.max"),
		MutationRateLimitSpan: rateWindow,
	}

	if cfg.BackendURL == "" {
		return Config{}, fmt.Errorf("backend url must be provided")
	}
	if parsed, err := url.Parse(cfg.BackendURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Config{}, fmt.Errorf("invalid backend url %q", cfg.BackendURL)
	}

	if cfg.DueDateLayout == "" {
		cfg.DueDateLayout = "1/2/2006, 3:04:05 PM"
	}

	if cfg.MutationRateLimit <= 0 {
		cfg.MutationRateLimit = 60
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}

	return parsed, nil
}
