package envinfo

import (
	"bufio"
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmshell/common"
	"github.com/mensylisir/xmshell/connector"
	"github.com/mensylisir/xmshell/session"
)

const osReleasePath = "/etc/os-release"

// DetectRemote returns the environment of a remote host reached through the
// given connection, cached in session state like the local variant. The OS
// name comes from /etc/os-release; package managers are probed over the
// connection.
func DetectRemote(ctx context.Context, conn connector.Connection, sess *session.Session) (Info, bool, error) {
	var cached Info
	ok, err := sess.GetJSON(common.StateKeyEnvironment, &cached)
	if err != nil {
		return Info{}, false, err
	}
	if ok {
		return cached, true, nil
	}

	info := Info{OS: "linux"}
	if id, err := remoteOSID(ctx, conn); err == nil && id != "" {
		info.OS = id
	}

	for _, probe := range managerProbes["linux"] {
		_, _, exitCode, execErr := conn.Exec(ctx, "command -v "+probe, "")
		if execErr == nil && exitCode == 0 {
			info.PackageManager = managerNames[probe]
			break
		}
	}

	if err := sess.SetJSON(common.StateKeyEnvironment, info); err != nil {
		return Info{}, false, errors.Wrap(err, "failed to cache environment info")
	}
	return info, false, nil
}

// remoteOSID reads the ID field of /etc/os-release, e.g. "ubuntu" or "centos".
func remoteOSID(ctx context.Context, conn connector.Connection) (string, error) {
	f, err := conn.Fetch(ctx, osReleasePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), `"`), nil
		}
	}
	return "", scanner.Err()
}
