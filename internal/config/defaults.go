package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default adb daemon address and protocol constants, matching the port
// every stock adb server listens on.
const (
	defaultHost           = "localhost"
	defaultPort           = 5555
	defaultConnectTimeout = 8 * time.Second
	defaultMetricsPort    = 9355
	defaultKeyComment     = "adbpush"
)

// GetDefaultConfig returns a Config populated entirely with defaults, used
// both as Load's starting point and directly when no config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills any zero-valued fields in cfg with their defaults.
// Explicit values from a config file or environment variable are preserved.
func ApplyDefaults(cfg *Config) {
	applyDeviceDefaults(&cfg.Device)
	applyKeyDefaults(&cfg.Key)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyDeviceDefaults(cfg *DeviceConfig) {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
}

// applyKeyDefaults points Path at ~/.android, the same directory the
// reference adb client keeps its adbkey pair in, so adbpush plays nicely
// with a host that already has adb installed.
func applyKeyDefaults(cfg *KeyConfig) {
	if cfg.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Path = filepath.Join(home, ".android")
		} else {
			cfg.Path = ".android"
		}
	}
	if cfg.Comment == "" {
		cfg.Comment = defaultKeyComment
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultMetricsPort
	}
}
