// Package config loads adbpush's configuration from built-in defaults, a
// file, and environment variables, in that order of increasing priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is adbpush's full static configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (bound by cmd/adbpush, not by this package)
//  2. Environment variables (ADBPUSH_*), applied only to keys that the
//     configuration file sets; without a file they are not read
//  3. Configuration file (YAML)
//  4. Default values
type Config struct {
	// Device identifies the adb daemon this client connects to.
	Device DeviceConfig `mapstructure:"device" yaml:"device"`

	// Key configures the client's RSA identity.
	Key KeyConfig `mapstructure:"key" yaml:"key"`

	// Install controls the push/install workflow.
	Install InstallConfig `mapstructure:"install" yaml:"install"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics configures the Prometheus metrics HTTP server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DeviceConfig addresses the adb daemon to dial.
type DeviceConfig struct {
	// Host is the adb daemon's address, e.g. "localhost" or a device IP.
	Host string `mapstructure:"host" validate:"required" yaml:"host"`

	// Port is the adb daemon's TCP port.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ConnectTimeout bounds how long the initial TCP dial may take.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required,gt=0" yaml:"connect_timeout"`
}

// KeyConfig locates and identifies the client's persisted RSA keypair.
type KeyConfig struct {
	// Path is the private key file's location. Empty uses the default
	// under the user's config directory.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Comment is appended to the exported public-key line, identifying
	// this client to the device's pairing UI.
	Comment string `mapstructure:"comment" yaml:"comment,omitempty"`
}

// InstallConfig controls the upload -> install -> cleanup workflow.
type InstallConfig struct {
	// KeepStagedAPK is loaded and saved with the rest of the configuration;
	// the push command does not read it, and its cleanup step always runs.
	KeepStagedAPK bool `mapstructure:"keep_staged_apk" yaml:"keep_staged_apk"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server run.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from configPath (or the default location if
// empty), environment variables, and defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := GetDefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ADBPUSH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook lets config files spell timeouts as "8s" or "1m"
// instead of raw nanosecond integers.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns adbpush's configuration directory, honoring
// XDG_CONFIG_HOME and falling back to ~/.config, then the current
// directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adbpush")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "adbpush")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// SaveConfig writes cfg to path in YAML, using cfg's yaml tags, creating
// the parent directory if needed. Only the key path is written here; the
// keypair itself is persisted by adbkey.LoadOrCreate, apart from config.yaml.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validate is shared by Validate so the *validator.Validate instance (which
// caches struct reflection) is built only once.
var validate = validator.New()

// Validate runs struct-tag validation over cfg, returning a combined error
// describing every violated rule.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}
