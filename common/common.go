package common

import "io/fs"

const AppName = "xmshell"

// Log field names used for ordered log output.
const (
	LogFieldSession = "Session"
	LogFieldEpisode = "Episode"
	LogFieldCommand = "Command"
)

// Session state keys. These are the only keys the execution core reads or
// writes through the session store.
const (
	StateKeyCredential  = "sudo_password"
	StateKeyCommands    = "commands"
	StateKeyEnvironment = "environment"
)

const (
	// ElevationPrefix marks a command as privileged when the trimmed command
	// line starts with it.
	ElevationPrefix = "sudo"
	// ElevationStdinFlag makes sudo read the password from stdin instead of
	// the controlling terminal.
	ElevationStdinFlag = "-S"
	// AffirmativeInput is the keystroke chained after the password when a
	// confirmation prompt has been accepted.
	AffirmativeInput = "y\n"
)

// FileMode0755 represents rwxr-xr-x
const FileMode0755 fs.FileMode = 0755
