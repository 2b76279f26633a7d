package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5, c.Workers)
	require.Equal(t, "output", c.OutputDir)
	require.Equal(t, "hosts.txt", c.HostsFile)
	require.Equal(t, "commands.txt", c.CommandsFile)
	require.True(t, c.InsecureSkipVerify)
	require.Equal(t, 30*time.Second, c.Timeout.Duration)
	require.NoError(t, c.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, 5, c.Workers)
}

func TestLoad_FileThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deploy.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
workers = 8
timeout = "5s"
insecure_skip_verify = false
output_dir = "results"
domain = "GME"
history = true
`), 0o644))
	t.Setenv("A10_WORKERS", "2")
	t.Setenv("A10_LOG_FORMAT", "json")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 2, c.Workers)
	require.Equal(t, 5*time.Second, c.Timeout.Duration)
	require.False(t, c.InsecureSkipVerify)
	require.Equal(t, "results", c.OutputDir)
	require.Equal(t, "GME", c.Domain)
	require.True(t, c.History)
	require.Equal(t, "json", c.LogFormat)
}

func TestLoad_BadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deploy.toml")
	require.NoError(t, os.WriteFile(p, []byte(`timeout = "forever"`), 0o644))
	_, err := Load(p)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Workers = 0
	require.Error(t, c.Validate())
	c = Default()
	c.OutputDir = ""
	require.Error(t, c.Validate())
}

func TestResolve(t *testing.T) {
	c := Default()
	c.WorkDir = "/srv/a10"
	require.Equal(t, "/srv/a10/output", c.Resolve("output"))
	require.Equal(t, "/tmp/x", c.Resolve("/tmp/x"))
	require.Equal(t, "/srv/a10/data/history.db", c.DBPath())
}
