package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Detector kinds. Each kind maps to a list of lowercase substrings matched
// case-insensitively against process output. The matching is substring-only;
// localized system messages are a known, documented gap.
const (
	DetectorAuthFailure     = "auth_failure"
	DetectorCommandNotFound = "command_not_found"
	DetectorConfirmation    = "confirmation"
)

// Config is the top-level configuration structure.
type Config struct {
	Shell     ShellSpec           `yaml:"shell"`
	Session   SessionSpec         `yaml:"session"`
	Detectors map[string][]string `yaml:"detectors"`
	Remote    *RemoteSpec         `yaml:"remote,omitempty"`
}

// ShellSpec configures how commands are executed on the host.
type ShellSpec struct {
	// Interpreter is the shell binary used to run command lines, e.g. /bin/bash.
	Interpreter string `yaml:"interpreter"`
	// ElevationPrefix is the word that marks a command as privileged.
	ElevationPrefix string `yaml:"elevationPrefix"`
}

// SessionSpec configures session persistence.
type SessionSpec struct {
	// DBPath is the SQLite database file for durable session state.
	// Empty means in-memory state only.
	DBPath string `yaml:"dbPath,omitempty"`
	// MaxAuthRetries bounds the credential re-prompt cycles per episode.
	MaxAuthRetries int `yaml:"maxAuthRetries,omitempty"`
}

// RemoteSpec configures an optional remote execution target.
type RemoteSpec struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port,omitempty"`
	User           string `yaml:"user"`
	Password       string `yaml:"password,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
}

// Load reads a YAML file from the given path and unmarshals it into a Config,
// applying defaults for anything left unset.
func Load(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, fmt.Errorf("filePath cannot be empty")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from '%s': %w", filePath, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", filePath, err)
	}
	return &cfg, nil
}
