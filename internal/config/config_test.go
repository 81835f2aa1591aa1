package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "redis:\n  addr: localhost:6379\nprogress:\n  backend: redis\n"))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, BackendRedis, cfg.Progress.Backend)
	require.Equal(t, "noop", cfg.Auth.Mode)
	require.Equal(t, 30*time.Minute, TTLDuration(cfg.Progress.IdleTTL, time.Minute))
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown backend":     "progress:\n  backend: floppy\n",
		"redis without addr":  "progress:\n  backend: redis\n",
		"jwt without secret":  "auth:\n  mode: jwt\n",
		"bad duration":        "trivia:\n  cacheTTL: soon\n",
		"amount out of range": "trivia:\n  defaultAmount: 80\n",
		"bad yaml":            "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(writeConfig(t, "log:\n  level: loud\n"))
	require.Error(t, err)
}

func TestSampleConfigIsValid(t *testing.T) {
	_, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
}

func TestTTLDuration(t *testing.T) {
	require.Equal(t, 5*time.Second, TTLDuration("5s", time.Minute))
	require.Equal(t, time.Minute, TTLDuration("", time.Minute))
	require.Equal(t, time.Minute, TTLDuration("nope", time.Minute))
}
