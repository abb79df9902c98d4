package connector

import (
	"context"
	"io"
)

// Connection is a command-execution channel to a remote host.
type Connection interface {
	// Exec runs a command line on the remote host. The stdin payload, when
	// non-empty, is written to the remote process's standard input in one
	// piece before the stream is closed.
	Exec(ctx context.Context, cmd string, stdin string) (stdout, stderr []byte, exitCode int, err error)

	// Fetch opens a remote file for reading. The caller closes the reader.
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)

	// Close tears down the connection.
	Close() error
}
