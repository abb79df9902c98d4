package driver

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh/terminal"
)

// TerminalPrompter solicits values from a human at the controlling terminal.
// Password input is read with echo disabled.
type TerminalPrompter struct {
	In  *os.File
	Out *os.File
}

var _ Prompter = (*TerminalPrompter)(nil)

// NewTerminalPrompter prompts on stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Credential(hint string) (string, error) {
	fmt.Fprintf(p.Out, "%s\nPassword: ", hint)
	defer fmt.Fprintln(p.Out)

	if terminal.IsTerminal(int(p.In.Fd())) {
		secret, err := terminal.ReadPassword(int(p.In.Fd()))
		if err != nil {
			return "", errors.Wrap(err, "failed to read password")
		}
		return string(secret), nil
	}

	// Not a TTY (e.g. piped input in tests); fall back to a plain line read.
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *TerminalPrompter) Confirm(hint string) (bool, error) {
	fmt.Fprintf(p.Out, "%s\n[y/N]: ", hint)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil {
		return false, errors.Wrap(err, "failed to read confirmation")
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
