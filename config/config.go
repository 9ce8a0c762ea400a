// Package config loads cadence service configuration with Viper.
//
// Precedence, lowest to highest: built-in defaults, the TOML config file
// (cadence.toml in the working directory or ~/.config/cadence/), then
// CADENCE_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cadencehq/cadence/errors"
)

// Config is the cadence service configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// DatabaseConfig configures the job store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DaemonConfig configures the run projector daemon.
type DaemonConfig struct {
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
}

// ScheduleConfig configures schedule parsing defaults.
type ScheduleConfig struct {
	// DefaultTimezone applies to schedules that name no timezone.
	// Empty means UTC.
	DefaultTimezone string `mapstructure:"default_timezone"`
}

// TickInterval returns the daemon tick interval as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Daemon.TickIntervalSeconds) * time.Second
}

var globalConfig *Config
var viperInstance *viper.Viper

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "cadence.db")
	v.SetDefault("daemon.tick_interval_seconds", 1)
	v.SetDefault("schedule.default_timezone", "") // UTC
}

// Load reads the cadence configuration, caching the result process-wide.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("CADENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	v.SetConfigName("cadence")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "cadence"))
	}

	// A missing config file is fine: defaults plus environment apply.
	_ = v.ReadInConfig()

	viperInstance = v
	return v
}
