package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/holo2k/AdvertControl-sub000/internal/utils"
	"github.com/holo2k/AdvertControl-sub000/pkg/file"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoadConfig tests parsing of a full configuration file.
func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "http://localhost:8080"
  timeout: 3s
identity:
  screen_file: "data/screen.json"
pairing:
  ttl_minutes: 10
  poll_interval: 1s
poll:
  interval: 7s
cache:
  dir: "data/cache"
  max_bytes: 1048576
playback:
  default_item_seconds: 20
status:
  enabled: true
  broker: "tcp://localhost:1883"
  topic: "screens/status"
  qos: 1
`)

	cfg, err := utils.LoadConfig(path, file.NewFileService())
	assert.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 10, cfg.Pairing.TTLMinutes)
	assert.Equal(t, time.Second, cfg.Pairing.PollInterval)
	assert.Equal(t, 7*time.Second, cfg.Poll.Interval)
	assert.Equal(t, int64(1048576), cfg.Cache.MaxBytes)
	assert.Equal(t, 20, cfg.Playback.DefaultItemSeconds)
	assert.True(t, cfg.Status.Enabled)
}

// TestLoadConfig_Defaults tests that unset timing knobs get sane values.
func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: "http://localhost:8080"
identity:
  screen_file: "data/screen.json"
cache:
  dir: "data/cache"
`)

	cfg, err := utils.LoadConfig(path, file.NewFileService())
	assert.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 5, cfg.Pairing.TTLMinutes)
	assert.Positive(t, cfg.Pairing.PollInterval)
	assert.Positive(t, cfg.Pairing.Window)
	assert.Positive(t, cfg.Poll.Interval)
	assert.Positive(t, cfg.Playback.IdleInterval)
	assert.Positive(t, cfg.Playback.DefaultItemSeconds)
}

// TestLoadConfig_MissingFile tests the error for a nonexistent path.
func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := utils.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), file.NewFileService())
	assert.Error(t, err)
}
