// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Daemon connection settings
	Daemon DaemonConfig `mapstructure:"daemon"`

	// Virtual-mouse bridge settings
	Bridge BridgeConfig `mapstructure:"bridge"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// DaemonConfig describes how to reach spacenavd
type DaemonConfig struct {
	SocketPath  string  `mapstructure:"socket_path"` // AF_UNIX socket of the daemon
	Sensitivity float64 `mapstructure:"sensitivity"` // Applied once on connect when > 0
}

// BridgeConfig tunes the 6-DoF to virtual-mouse mapping
type BridgeConfig struct {
	Speed        float64 `mapstructure:"speed"`         // Pointer pixels per axis count
	DeadZone     int32   `mapstructure:"dead_zone"`     // Axis counts ignored around center
	InvertScroll bool    `mapstructure:"invert_scroll"` // Flip twist-to-wheel direction
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Daemon: DaemonConfig{
			SocketPath:  "/var/run/spnav.sock",
			Sensitivity: 0,
		},
		Bridge: BridgeConfig{
			Speed:        0.05,
			DeadZone:     15,
			InvertScroll: false,
		},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("spacenav")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/spacenav")
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "spacenav"))
		}
		viper.AddConfigPath(".")
	}

	// Set defaults - individual fields so file values merge over them
	viper.SetDefault("daemon.socket_path", DefaultConfig.Daemon.SocketPath)
	viper.SetDefault("daemon.sensitivity", DefaultConfig.Daemon.Sensitivity)

	viper.SetDefault("bridge.speed", DefaultConfig.Bridge.Speed)
	viper.SetDefault("bridge.dead_zone", DefaultConfig.Bridge.DeadZone)
	viper.SetDefault("bridge.invert_scroll", DefaultConfig.Bridge.InvertScroll)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/spacenav/spacenav.toml"
	}

	return filepath.Join(home, ".config", "spacenav", "spacenav.toml")
}

// UpdateDaemon updates daemon configuration and persists it
func UpdateDaemon(daemonCfg DaemonConfig) error {
	viper.Set("daemon.socket_path", daemonCfg.SocketPath)
	viper.Set("daemon.sensitivity", daemonCfg.Sensitivity)
	Get().Daemon = daemonCfg
	return Save()
}

// UpdateBridge updates bridge configuration and persists it
func UpdateBridge(bridgeCfg BridgeConfig) error {
	viper.Set("bridge.speed", bridgeCfg.Speed)
	viper.Set("bridge.dead_zone", bridgeCfg.DeadZone)
	viper.Set("bridge.invert_scroll", bridgeCfg.InvertScroll)
	Get().Bridge = bridgeCfg
	return Save()
}

// UpdateLogging updates logging configuration and persists it
func UpdateLogging(loggingCfg LoggingConfig) error {
	viper.Set("logging.log_level", loggingCfg.LogLevel)
	Get().Logging = loggingCfg
	return Save()
}
