package config

import (
	"os"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel     = "info"
	defaultReadInterval = 60.0
	defaultRecordDays   = 365
	defaultPlotWidth    = 12.0
	defaultPlotHeight   = 8.0
	defaultPlotDPI      = 120
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	General  GeneralConfig  `mapstructure:"general"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Record   RecordConfig   `mapstructure:"record"`
	Plot     PlotConfig     `mapstructure:"plot"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type GeneralConfig struct {
	// StartupTimeout bounds the wait for gateway connectivity, in
	// seconds. Zero or negative means wait forever.
	StartupTimeout int `mapstructure:"startup_timeout"`
}

type SensorConfig struct {
	Type         string  `mapstructure:"type"`
	Pin          int     `mapstructure:"pin"`
	ReadInterval float64 `mapstructure:"read_interval"`
}

type RecordConfig struct {
	Directory string `mapstructure:"directory"`
	Days      int    `mapstructure:"days"`
}

type PlotConfig struct {
	Path   string  `mapstructure:"path"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
	DPI    int     `mapstructure:"dpi"`
}

type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	OwnerIDs []int64 `mapstructure:"owner_ids"`
}

// ReadIntervalDuration returns the configured read interval as a duration.
func (c SensorConfig) ReadIntervalDuration() time.Duration {
	return time.Duration(c.ReadInterval * float64(time.Second))
}

// StartupTimeoutDuration returns the startup timeout as a duration,
// zero when unbounded.
func (c GeneralConfig) StartupTimeoutDuration() time.Duration {
	if c.StartupTimeout <= 0 {
		return 0
	}

	return time.Duration(c.StartupTimeout) * time.Second
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("sensorbot", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configFlag := flags.String("config", "", "Path to config file")
	logLevelFlag := flags.String("log-level", "", "Log level (debug, info, warning, error)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("general.startup_timeout", 60)
	v.SetDefault("sensor.type", "DHT22")
	v.SetDefault("sensor.pin", 4)
	v.SetDefault("sensor.read_interval", defaultReadInterval)
	v.SetDefault("record.directory", ".")
	v.SetDefault("record.days", defaultRecordDays)
	v.SetDefault("plot.path", "plot.png")
	v.SetDefault("plot.width", defaultPlotWidth)
	v.SetDefault("plot.height", defaultPlotHeight)
	v.SetDefault("plot.dpi", defaultPlotDPI)

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("SENSORBOT_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName("sensorbot")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	if *logLevelFlag != "" {
		v.Set("log_level", *logLevelFlag)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.Sensor.ReadInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Sensor.ReadInterval)
	}
	if c.Record.Directory == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "record directory must not be empty")
	}
	if c.Record.Days < 1 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "record retention must be at least one day")
	}
	if c.Plot.Path == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "plot path must not be empty")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 || c.Plot.DPI <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "plot dimensions must be positive")
	}
	if c.Telegram.Token == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "telegram token is required")
	}
	if len(c.Telegram.OwnerIDs) == 0 {
		return errFactory.WithMessage(errors.ErrMissingConfig, "at least one telegram owner id is required")
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "warn", "error":
		return true
	default:
		return false
	}
}
