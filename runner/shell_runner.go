package runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmshell/logger"
)

// shellRunner executes command lines on the local host through a shell
// interpreter, e.g. /bin/bash -c "<command>".
type shellRunner struct {
	interpreter string
}

// NewShellRunner creates a Runner that executes through the given shell
// interpreter.
func NewShellRunner(interpreter string) Runner {
	return &shellRunner{interpreter: interpreter}
}

func (r *shellRunner) Run(ctx context.Context, commandLine string, stdin string) (Result, error) {
	cmd := exec.CommandContext(ctx, r.interpreter, "-c", commandLine)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	logger.Log.Debugf("Running command through %s: %s", r.interpreter, commandLine)
	err := cmd.Run()

	result := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The process ran and returned a non-zero status; that is an
			// outcome, not a runner failure.
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, errors.Wrapf(err, "failed to run command '%s'", commandLine)
	}
	return result, nil
}
