package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadServerMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultServer(), cfg)
}

func TestLoadServerPartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bind_address: \"127.0.0.1:9000\"\n"), 0o644))

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.BindAddress)
	require.Equal(t, DefaultServer().Rules, cfg.Rules)
}

func TestConfigPathEnvOverride(t *testing.T) {
	t.Setenv(ConfigPathEnv, "/tmp/custom.yaml")
	require.Equal(t, "/tmp/custom.yaml", ConfigPath())

	t.Setenv(ConfigPathEnv, "")
	require.Equal(t, DefaultConfigPath, ConfigPath())
}
