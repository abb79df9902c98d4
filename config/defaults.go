package config

import (
	"fmt"

	"github.com/mensylisir/xmshell/common"
)

const (
	defaultInterpreter    = "/bin/bash"
	defaultMaxAuthRetries = 3
	defaultRemotePort     = 22
)

// Default returns a Config populated entirely from defaults. This is what the
// core runs with when no config file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills in any unset fields. Detector phrase lists supplied by the
// user extend the defaults rather than replacing them, so the stock phrases
// keep working when a deployment adds tool-specific ones.
func (c *Config) SetDefaults() {
	if c.Shell.Interpreter == "" {
		c.Shell.Interpreter = defaultInterpreter
	}
	if c.Shell.ElevationPrefix == "" {
		c.Shell.ElevationPrefix = common.ElevationPrefix
	}
	if c.Session.MaxAuthRetries <= 0 {
		c.Session.MaxAuthRetries = defaultMaxAuthRetries
	}
	if c.Remote != nil && c.Remote.Port == 0 {
		c.Remote.Port = defaultRemotePort
	}

	if c.Detectors == nil {
		c.Detectors = map[string][]string{}
	}
	defaults := map[string][]string{
		DetectorAuthFailure: {
			"sorry, try again",
			"incorrect password",
		},
		DetectorCommandNotFound: {
			"command not found",
			"not recognized as",
		},
		DetectorConfirmation: {
			"do you want to continue?",
			"[y/n]",
			"is this ok? [y/n]",
		},
	}
	for kind, phrases := range defaults {
		c.Detectors[kind] = mergePhrases(phrases, c.Detectors[kind])
	}
}

func mergePhrases(defaults, extra []string) []string {
	merged := make([]string, 0, len(defaults)+len(extra))
	seen := make(map[string]struct{}, len(defaults)+len(extra))
	for _, p := range append(append([]string{}, defaults...), extra...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// Validate performs basic structural validation.
func (c *Config) Validate() error {
	if c.Shell.Interpreter == "" {
		return fmt.Errorf("shell.interpreter must not be empty")
	}
	if c.Shell.ElevationPrefix == "" {
		return fmt.Errorf("shell.elevationPrefix must not be empty")
	}
	for _, kind := range []string{DetectorAuthFailure, DetectorCommandNotFound, DetectorConfirmation} {
		if len(c.Detectors[kind]) == 0 {
			return fmt.Errorf("detectors.%s must contain at least one phrase", kind)
		}
	}
	if c.Remote != nil {
		if c.Remote.Address == "" {
			return fmt.Errorf("remote.address is required when a remote target is configured")
		}
		if c.Remote.User == "" {
			return fmt.Errorf("remote.user is required when a remote target is configured")
		}
	}
	return nil
}
