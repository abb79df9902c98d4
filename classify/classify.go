// Package classify turns a completed process's exit status and output into a
// verdict. Detection is case-insensitive substring matching against
// configurable phrase sets; localized system messages are not handled.
package classify

import (
	"fmt"
	"strings"

	"github.com/mensylisir/xmshell/config"
)

// Verdict is the classification of one completed process run.
type Verdict int

const (
	VerdictSuccess Verdict = iota
	VerdictAuthFailed
	VerdictNotInstalled
	VerdictExecFailed
	VerdictNeedsConfirmation
)

// String returns a string representation of the Verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictSuccess:
		return "SUCCESS"
	case VerdictAuthFailed:
		return "AUTH_FAILED"
	case VerdictNotInstalled:
		return "NOT_INSTALLED"
	case VerdictExecFailed:
		return "EXEC_FAILED"
	case VerdictNeedsConfirmation:
		return "NEEDS_CONFIRMATION"
	default:
		return fmt.Sprintf("UNKNOWN_VERDICT_%d", int(v))
	}
}

// Classifier matches process output against detector phrase sets.
type Classifier struct {
	authPhrases     []string
	notFoundPhrases []string
	confirmPhrases  []string
}

// New creates a Classifier from a detector-kind to phrase-list mapping, as
// produced by the config package.
func New(detectors map[string][]string) *Classifier {
	return &Classifier{
		authPhrases:     detectors[config.DetectorAuthFailure],
		notFoundPhrases: detectors[config.DetectorCommandNotFound],
		confirmPhrases:  detectors[config.DetectorConfirmation],
	}
}

// Classify inspects a completed process.
//
// detectAuth enables authentication-failure matching; it is set when the run
// carried an elevation credential. detectConfirmation enables interactive
// confirmation-prompt matching; it is set only immediately after the first run
// of a privileged command. A confirmation prompt appearing on a later pass is
// ordinary output.
//
// An authentication-failure phrase always wins over a confirmation phrase: a
// failed sudo attempt must never be mistaken for a program-level prompt.
func (c *Classifier) Classify(exitCode int, stdout, stderr string, detectAuth, detectConfirmation bool) Verdict {
	stderrLow := strings.ToLower(stderr)
	combinedLow := strings.ToLower(stdout) + "\n" + stderrLow

	if detectAuth && containsAny(stderrLow, c.authPhrases) {
		return VerdictAuthFailed
	}
	if detectConfirmation && containsAny(combinedLow, c.confirmPhrases) {
		return VerdictNeedsConfirmation
	}
	if exitCode == 0 {
		return VerdictSuccess
	}
	if containsAny(stderrLow, c.notFoundPhrases) {
		return VerdictNotInstalled
	}
	return VerdictExecFailed
}

func containsAny(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
