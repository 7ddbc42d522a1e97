package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/sensorbot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "sensorbot.toml")
	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err)

	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "debug"

[general]
startup_timeout = 120

[sensor]
type = "DHT11"
pin = 17
read_interval = 5.0

[record]
directory = "/var/lib/sensorbot"
days = 30

[plot]
path = "/tmp/sensorbot-plot.png"
width = 10.0
height = 6.0
dpi = 96

[telegram]
token = "123456:testtoken"
owner_ids = [12345, 67890]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 120, cfg.General.StartupTimeout)
	assert.Equal(t, "DHT11", cfg.Sensor.Type)
	assert.Equal(t, 17, cfg.Sensor.Pin)
	assert.InDelta(t, 5.0, cfg.Sensor.ReadInterval, 1e-9)
	assert.Equal(t, "/var/lib/sensorbot", cfg.Record.Directory)
	assert.Equal(t, 30, cfg.Record.Days)
	assert.Equal(t, "/tmp/sensorbot-plot.png", cfg.Plot.Path)
	assert.Equal(t, 96, cfg.Plot.DPI)
	assert.Equal(t, "123456:testtoken", cfg.Telegram.Token)
	assert.Equal(t, []int64{12345, 67890}, cfg.Telegram.OwnerIDs)
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
[telegram]
token = "123456:testtoken"
owner_ids = [12345]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, 60, cfg.General.StartupTimeout)
	assert.Equal(t, "DHT22", cfg.Sensor.Type)
	assert.Equal(t, 4, cfg.Sensor.Pin)
	assert.InDelta(t, 60.0, cfg.Sensor.ReadInterval, 1e-9)
	assert.Equal(t, ".", cfg.Record.Directory)
	assert.Equal(t, 365, cfg.Record.Days)
	assert.Equal(t, "plot.png", cfg.Plot.Path)
}

func TestLoadInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestLoadMissingToken(t *testing.T) {
	configPath := writeConfig(t, `
[telegram]
owner_ids = [12345]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")
}

func TestLoadInvalidLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
log_level = "shouting"

[telegram]
token = "123456:testtoken"
owner_ids = [12345]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestLoadInvalidInterval(t *testing.T) {
	configPath := writeConfig(t, `
[sensor]
read_interval = -1.0

[telegram]
token = "123456:testtoken"
owner_ids = [12345]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}

func TestLogLevelFlag(t *testing.T) {
	configPath := writeConfig(t, `
[telegram]
token = "123456:testtoken"
owner_ids = [12345]
`)
	t.Setenv("SENSORBOT_CONFIG", configPath)

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"sensorbot", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
