package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "REMINDER_SCHEDULE",
		"REMINDER_HORIZON_DAYS", "TREND_MONTHS", "ALERT_LIMIT", "CORS_ORIGINS", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "@hourly", cfg.ReminderSchedule)
	assert.Equal(t, 7*24*time.Hour, cfg.ReminderHorizon)
	assert.Equal(t, 6, cfg.TrendMonths)
	assert.Equal(t, 4, cfg.AlertLimit)
	assert.Equal(t, "CLP", cfg.Household.Currency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/gastos.db")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REMINDER_HORIZON_DAYS", "3")
	t.Setenv("TREND_MONTHS", "12")
	t.Setenv("ALERT_LIMIT", "not-a-number")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://gastos.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/gastos.db", cfg.DBPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 3*24*time.Hour, cfg.ReminderHorizon)
	assert.Equal(t, 12, cfg.TrendMonths)
	assert.Equal(t, 4, cfg.AlertLimit, "unparsable values keep the default")
	assert.Equal(t, []string{"http://localhost:5173", "https://gastos.example"}, cfg.CORSOrigins)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoad_TOMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "household.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = "7070"

[reminders]
schedule = "0 8 * * *"
horizon_days = 10

[dashboard]
trend_months = 3

[household]
name = "Casa Rojas"
members = ["ana", "luis"]

[[household.services]]
name = "Agua"
kind = "water"
unit = "m3"
rate_per_unit = "1200"
`), 0o600))

	// GIVEN a TOML file and an env var for the same key
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")

	// WHEN loading
	cfg, err := Load()
	require.NoError(t, err)

	// THEN the file fills in and the environment still wins
	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, "0 8 * * *", cfg.ReminderSchedule)
	assert.Equal(t, 10*24*time.Hour, cfg.ReminderHorizon)
	assert.Equal(t, 3, cfg.TrendMonths)
	assert.Equal(t, "Casa Rojas", cfg.Household.Name)
	assert.Equal(t, "CLP", cfg.Household.Currency)
	assert.Equal(t, []string{"ana", "luis"}, cfg.Household.Members)
	require.Len(t, cfg.Household.Services, 1)
	assert.Equal(t, "1200", cfg.Household.Services[0].Rate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"non-numeric port", func(c *Config) { c.Port = "abc" }, "invalid port 'abc': must be a number"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port 70000: must be between 1 and 65535"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "database path cannot be empty"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log format 'xml'"},
		{"bad schedule", func(c *Config) { c.ReminderSchedule = "every now and then" }, "invalid reminder schedule"},
		{"short horizon", func(c *Config) { c.ReminderHorizon = time.Hour }, "invalid reminder horizon"},
		{"trend months", func(c *Config) { c.TrendMonths = 0 }, "invalid trend months 0"},
		{"alert limit", func(c *Config) { c.AlertLimit = 0 }, "invalid alert limit 0"},
		{"unnamed service", func(c *Config) {
			c.Household.Services = []ServicePreset{{Kind: "gas"}}
		}, "household service #1 has no name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Port = "abc"
	cfg.DBPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "database path cannot be empty")
}
