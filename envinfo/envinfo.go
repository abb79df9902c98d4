// Package envinfo detects the operating system and default package manager of
// an execution target. Results are cached in session state so the check runs
// once per session.
package envinfo

import (
	"os/exec"
	"runtime"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmshell/common"
	"github.com/mensylisir/xmshell/logger"
	"github.com/mensylisir/xmshell/session"
)

// Info describes an execution target's environment.
type Info struct {
	OS             string `json:"os"`
	PackageManager string `json:"pkg_manager"`
}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

// managerProbes lists candidate package managers per OS, in preference order.
var managerProbes = map[string][]string{
	"linux":   {"apt-get", "yum", "dnf"},
	"darwin":  {"brew"},
	"windows": {"choco", "winget"},
}

// managerNames maps a probe binary to the package manager name reported to
// the caller.
var managerNames = map[string]string{
	"apt-get": "apt",
	"yum":     "yum",
	"dnf":     "dnf",
	"brew":    "brew",
	"choco":   "choco",
	"winget":  "winget",
}

// Detect returns the environment of the local host. The second result is true
// when the answer came from the session cache rather than a fresh probe.
func Detect(sess *session.Session) (Info, bool, error) {
	var cached Info
	ok, err := sess.GetJSON(common.StateKeyEnvironment, &cached)
	if err != nil {
		return Info{}, false, err
	}
	if ok {
		logger.Log.Debug("Environment info found in session state; returning cached data.")
		return cached, true, nil
	}

	info := Info{OS: runtime.GOOS}
	for _, probe := range managerProbes[info.OS] {
		if _, err := lookPath(probe); err == nil {
			info.PackageManager = managerNames[probe]
			break
		}
	}

	if err := sess.SetJSON(common.StateKeyEnvironment, info); err != nil {
		return Info{}, false, errors.Wrap(err, "failed to cache environment info")
	}
	logger.Log.Debugf("Detected environment: os=%s pkg_manager=%s", info.OS, info.PackageManager)
	return info, false, nil
}
