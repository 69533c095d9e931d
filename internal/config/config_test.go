package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, defaultHost, cfg.Device.Host)
	assert.Equal(t, defaultPort, cfg.Device.Port)
	assert.Equal(t, 8*time.Second, cfg.Device.ConnectTimeout)
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestValidateRejectsMissingHost(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Device.Host = ""
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Device.Port = 70000
	err := Validate(cfg)
	require.Error(t, err)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
device:
  host: "192.168.1.50"
  port: 5037
  connect_timeout: 3s
logging:
  level: debug
  format: json
  output: stderr
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", cfg.Device.Host)
	assert.Equal(t, 5037, cfg.Device.Port)
	assert.Equal(t, 3*time.Second, cfg.Device.ConnectTimeout)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultHost, cfg.Device.Host)
}

func TestGetDefaultConfigPathHonorsXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "adbpush", "config.yaml"), GetDefaultConfigPath())
}

func TestSaveConfigRoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Device.Host = "192.168.1.99"
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.99", reloaded.Device.Host)
}
