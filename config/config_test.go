package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cryptii.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, cryptii.DefaultHistoryDepth, cfg.History.Depth)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
strict = true

[log]
level = "debug"
format = "json"

[history]
depth = 10

[store]
driver = "sqlite"
path = "pipes.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.History.Depth)
	assert.Equal(t, cryptii.DefaultHistoryActionLimit, cfg.History.ActionLimit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "pipes.db", cfg.Store.Path)
	assert.Len(t, cfg.PipeOptions(), 3)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"debug\"\n")
	t.Setenv("CRYPTII_LOG_LEVEL", "WARN")
	t.Setenv("CRYPTII_HISTORY_DEPTH", "-1")
	t.Setenv("CRYPTII_RUN_LOG_LIMIT", "5")
	t.Setenv("CRYPTII_STORE_DRIVER", "files")
	t.Setenv("CRYPTII_STORE_PATH", "/var/lib/cryptii")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, -1, cfg.History.Depth)
	assert.Equal(t, 5, cfg.RunLog.Limit)
	assert.Equal(t, "files", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/cryptii", cfg.Store.Path)

	p := cryptii.New(cfg.PipeOptions()...)
	defer p.Close()
	assert.Nil(t, p.History())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"malformed":        "[log\n",
		"unknown level":    "[log]\nlevel = \"loud\"\n",
		"unknown format":   "[log]\nformat = \"xml\"\n",
		"unknown driver":   "[store]\ndriver = \"redis\"\n",
		"store path":       "[store]\ndriver = \"sqlite\"\n",
		"action limit":     "[history]\naction_limit = 0\n",
		"negative run log": "[run_log]\nlimit = -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("CRYPTII_HISTORY_DEPTH", "deep")
		_, err := Load("")
		assert.ErrorContains(t, err, "CRYPTII_HISTORY_DEPTH")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "brick", "caesar-cipher")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"brick":"caesar-cipher"`)

	buf.Reset()
	logger = LogConfig{Level: "info", Format: "human"}.NewLogger(&buf)
	logger.Info("pipe loaded", "bricks", 3)
	assert.Equal(t, "[INFO] pipe loaded\n  bricks: 3\n", buf.String())

	buf.Reset()
	logger = LogConfig{Level: "debug", Format: "text"}.NewLogger(&buf)
	logger.Debug("propagating")
	assert.Contains(t, buf.String(), "level=DEBUG msg=propagating")
}
