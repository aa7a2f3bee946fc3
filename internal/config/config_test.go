package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := write(t, `
[session]
name = "lobby"
tick_rate = "100ms"

[world]
respawn_height = -25.5

[journal]
enabled = true
dsn = "postgres://x@localhost/y"
flush_interval_ticks = 5
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "lobby", cfg.Session.Name)
	assert.Equal(t, 100*time.Millisecond, cfg.Session.TickRate)
	assert.Equal(t, 1, cfg.Session.ReadyDelayTicks, "untouched keys keep defaults")
	require.NotNil(t, cfg.World.RespawnHeight)
	assert.Equal(t, -25.5, *cfg.World.RespawnHeight)
	assert.Nil(t, cfg.World.DestroyBelow)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 5, cfg.Journal.FlushInterval)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NotZero(t, cfg.Session.StartTime)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	_, err := Load(missing, false)
	assert.Error(t, err)

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, "authsim", cfg.Session.Name)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad toml":       "[session\n",
		"zero tick":      "[session]\ntick_rate = \"0s\"\n",
		"negative delay": "[session]\nready_delay_ticks = -1\n",
		"journal no dsn": "[journal]\nenabled = true\ndsn = \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, body), false)
			assert.Error(t, err)
		})
	}
}
