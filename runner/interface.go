package runner

import "context"

// Result holds the captured outcome of one completed process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a single command line synchronously through a shell
// interpreter. The stdin payload, when non-empty, is written to the process's
// standard input in one piece before the stream is closed; this is the
// mechanism for feeding a secret line and, when chained, a confirmation
// keystroke to a process that is never read from interactively.
//
// A non-zero exit code is not an error: Result carries it and err is nil.
// err is reserved for failures to spawn or communicate with the process.
type Runner interface {
	Run(ctx context.Context, commandLine string, stdin string) (Result, error)
}
