package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfigYAML = `
shell:
  interpreter: /bin/sh
  elevationPrefix: sudo
session:
  dbPath: /var/lib/xmshell/sessions.db
  maxAuthRetries: 2
detectors:
  confirmation:
    - "proceed? [y/n]"
remote:
  address: "192.168.1.10"
  user: ops
  privateKeyPath: /tmp/id_rsa
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xmshell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, sampleConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "/bin/sh", cfg.Shell.Interpreter)
	assert.Equal(t, "sudo", cfg.Shell.ElevationPrefix)
	assert.Equal(t, "/var/lib/xmshell/sessions.db", cfg.Session.DBPath)
	assert.Equal(t, 2, cfg.Session.MaxAuthRetries)

	require.NotNil(t, cfg.Remote)
	assert.Equal(t, 22, cfg.Remote.Port, "remote port should default to 22")

	// User phrases extend the defaults, they do not replace them.
	assert.Contains(t, cfg.Detectors[DetectorConfirmation], "proceed? [y/n]")
	assert.Contains(t, cfg.Detectors[DetectorConfirmation], "do you want to continue?")
	assert.Contains(t, cfg.Detectors[DetectorAuthFailure], "sorry, try again")
	assert.Contains(t, cfg.Detectors[DetectorCommandNotFound], "command not found")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	_, err = Load("")
	require.Error(t, err)
}

func TestLoadInvalidRemote(t *testing.T) {
	_, err := Load(writeTempConfig(t, "remote:\n  address: \"10.0.0.1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.user")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/bin/bash", cfg.Shell.Interpreter)
	assert.Equal(t, "sudo", cfg.Shell.ElevationPrefix)
	assert.Equal(t, 3, cfg.Session.MaxAuthRetries)
	assert.Nil(t, cfg.Remote)
	assert.Len(t, cfg.Detectors[DetectorConfirmation], 3)
}
