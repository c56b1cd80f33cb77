package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultBranch, cfg.DefaultBranch)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestWriteDefaultThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	require.Contains(t, string(data), "default_branch")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultBranch, cfg.DefaultBranch)
}
