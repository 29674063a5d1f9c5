package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50*time.Millisecond, cfg.UI.FrameInterval)
	assert.Equal(t, ".", cfg.UI.StartDirectory)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ui:
  frame_interval: 20ms
  show_hidden: true
web:
  port: 9090
logging:
  level: DEBUG
  file_path: ""
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.UI.FrameInterval)
	assert.True(t, cfg.UI.ShowHidden)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "", cfg.Logging.FilePath)
	assert.Equal(t, 3, cfg.Logging.MaxBackups)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("IMAGE_COMPRESSOR_WEB_PORT", "7070")
	t.Setenv("IMAGE_COMPRESSOR_LOGGING_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  show_hidden: false\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Web.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("logging:\n  level: loud\n"), 0o644))
	_, err := LoadConfig(bad)
	assert.ErrorContains(t, err, "invalid log level")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("ui: [unterminated"), 0o644))
	_, err = LoadConfig(broken)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UI.FrameInterval = 0
	cfg.UI.StartDirectory = ""
	cfg.Web.Port = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultFrameInterval, cfg.UI.FrameInterval)
	assert.Equal(t, ".", cfg.UI.StartDirectory)
	assert.Equal(t, DefaultPort, cfg.Web.Port)

	cfg.Web.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.UI.FrameInterval = time.Minute
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "pics"), expandPath("~/pics"))

	t.Setenv("PICS_DIR", "/data/pics")
	assert.Equal(t, "/data/pics", expandPath("$PICS_DIR"))
}
