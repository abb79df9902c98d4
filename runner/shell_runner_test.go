package runner

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestShellRunnerCapturesOutput(t *testing.T) {
	requireUnixShell(t)
	r := NewShellRunner("/bin/bash")

	res, err := r.Run(context.Background(), "echo hello; echo oops >&2", "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", res.Stdout)
	assert.Equal(t, "oops", res.Stderr)
}

func TestShellRunnerNonZeroExitIsNotAnError(t *testing.T) {
	requireUnixShell(t)
	r := NewShellRunner("/bin/bash")

	res, err := r.Run(context.Background(), "exit 3", "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestShellRunnerStdinPayload(t *testing.T) {
	requireUnixShell(t)
	r := NewShellRunner("/bin/bash")

	// Two chained lines in a single write, the way a password and a
	// confirmation keystroke are fed to a privileged command.
	res, err := r.Run(context.Background(), "read first; read second; echo \"$first/$second\"", "secret123\ny\n")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "secret123/y", res.Stdout)
}

func TestShellRunnerSpawnFailure(t *testing.T) {
	requireUnixShell(t)
	r := NewShellRunner("/nonexistent/shell")

	_, err := r.Run(context.Background(), "echo hi", "")
	require.Error(t, err)
}
