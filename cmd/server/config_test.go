package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, &c)
	require.NoError(t, loadConfig(fs, nil, &c))
	assert.Equal(t, ":7000", c.Listen)
	assert.Equal(t, time.Second, c.PollInterval)
	assert.Equal(t, 300, c.MaxFailures)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linewire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":7100"
passcode: fromfile
poll_interval: 250ms
max_idle: 20
echo: true
`), 0o600))

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, &c)
	require.NoError(t, loadConfig(fs, []string{"-config", path, "-passcode", "fromflag"}, &c))

	assert.Equal(t, ":7100", c.Listen)
	assert.Equal(t, "fromflag", c.Passcode)
	assert.Equal(t, 250*time.Millisecond, c.PollInterval)
	assert.Equal(t, 20, c.MaxIdle)
	assert.True(t, c.Echo)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, &c)
	assert.Error(t, loadConfig(fs, []string{"-config", path}, &c))
	assert.Error(t, loadConfig(fs, []string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, &c))
}
