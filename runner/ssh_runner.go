package runner

import (
	"context"
	"strings"

	"github.com/mensylisir/xmshell/connector"
)

// sshRunner runs the same Runner contract on a remote host through an SSH
// connection. The execution protocol is host-agnostic: the controller never
// knows whether commands run locally or remotely.
type sshRunner struct {
	conn connector.Connection
}

// NewSSHRunner creates a Runner backed by the given connection.
func NewSSHRunner(conn connector.Connection) Runner {
	return &sshRunner{conn: conn}
}

func (r *sshRunner) Run(ctx context.Context, commandLine string, stdin string) (Result, error) {
	stdout, stderr, exitCode, err := r.conn.Exec(ctx, commandLine, stdin)
	result := Result{
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		ExitCode: exitCode,
	}
	return result, err
}
