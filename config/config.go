// Package config loads server settings from .env, the environment and an
// optional TOML household file.
//
// Precedence, lowest first: built-in defaults, the TOML file named by
// CONFIG_FILE, environment variables (a .env file in the working directory
// is loaded into the environment first without overriding it). Command-line
// flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port        string
	CORSOrigins []string

	// Database
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Reminders
	ReminderSchedule string
	ReminderHorizon  time.Duration

	// Dashboard
	TrendMonths int
	AlertLimit  int

	ConfigFile string
	Household  Household
}

// Household holds defaults read from the TOML file.
type Household struct {
	Name     string          `toml:"name"`
	Currency string          `toml:"currency"`
	Members  []string        `toml:"members"`
	Services []ServicePreset `toml:"services"`
}

// ServicePreset seeds a utility service on first start.
type ServicePreset struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Unit   string `toml:"unit"`
	Rate   string `toml:"rate_per_unit"`
	Budget string `toml:"goal_monthly_budget"`
}

// fileConfig is the on-disk TOML layout.
type fileConfig struct {
	Server struct {
		Port        string   `toml:"port"`
		DBPath      string   `toml:"db_path"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"server"`
	Reminders struct {
		Schedule    string `toml:"schedule"`
		HorizonDays int    `toml:"horizon_days"`
	} `toml:"reminders"`
	Dashboard struct {
		TrendMonths int `toml:"trend_months"`
		AlertLimit  int `toml:"alert_limit"`
	} `toml:"dashboard"`
	Household Household `toml:"household"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:             "8080",
		CORSOrigins:      []string{"*"},
		DBPath:           "./data/gastos.db",
		LogLevel:         "info",
		LogFormat:        "text",
		ReminderSchedule: "@hourly",
		ReminderHorizon:  7 * 24 * time.Hour,
		TrendMonths:      6,
		AlertLimit:       4,
		Household:        Household{Currency: "CLP"},
	}
}

// Load builds the configuration. A missing .env or TOML file is not an
// error; a malformed TOML file is.
func Load() (*Config, error) {
	// Local development convenience; absent in production.
	_ = godotenv.Load()

	cfg := Default()
	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ReminderSchedule = getEnv("REMINDER_SCHEDULE", cfg.ReminderSchedule)
	if days := getEnvInt("REMINDER_HORIZON_DAYS", 0); days != 0 {
		cfg.ReminderHorizon = time.Duration(days) * 24 * time.Hour
	}
	cfg.TrendMonths = getEnvInt("TREND_MONTHS", cfg.TrendMonths)
	cfg.AlertLimit = getEnvInt("ALERT_LIMIT", cfg.AlertLimit)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Server.Port != "" {
		c.Port = fc.Server.Port
	}
	if fc.Server.DBPath != "" {
		c.DBPath = fc.Server.DBPath
	}
	if len(fc.Server.CORSOrigins) > 0 {
		c.CORSOrigins = fc.Server.CORSOrigins
	}
	if fc.Reminders.Schedule != "" {
		c.ReminderSchedule = fc.Reminders.Schedule
	}
	if fc.Reminders.HorizonDays != 0 {
		c.ReminderHorizon = time.Duration(fc.Reminders.HorizonDays) * 24 * time.Hour
	}
	if fc.Dashboard.TrendMonths != 0 {
		c.TrendMonths = fc.Dashboard.TrendMonths
	}
	if fc.Dashboard.AlertLimit != 0 {
		c.AlertLimit = fc.Dashboard.AlertLimit
	}
	if fc.Household.Currency == "" {
		fc.Household.Currency = c.Household.Currency
	}
	c.Household = fc.Household
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.ReminderSchedule != "" {
		if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reminder schedule '%s': %v", c.ReminderSchedule, err))
		}
	}
	if c.ReminderHorizon < 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder horizon %v: must be at least 1 day", c.ReminderHorizon))
	}

	if c.TrendMonths < 1 || c.TrendMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid trend months %d: must be between 1 and 36", c.TrendMonths))
	}
	if c.AlertLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid alert limit %d: must be at least 1", c.AlertLimit))
	}

	for i, s := range c.Household.Services {
		if strings.TrimSpace(s.Name) == "" {
			errors = append(errors, fmt.Sprintf("household service #%d has no name", i+1))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
