package util

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SplitCommand splits a shell command line into whitespace-delimited tokens,
// honoring single and double quotes. It returns an error for an empty line or
// unbalanced quoting.
func SplitCommand(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inToken bool
		quote   rune
	)

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if quote != 0 {
		return nil, errors.Errorf("unbalanced %q quote in command line", quote)
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	if len(tokens) == 0 {
		return nil, errors.New("command line is empty")
	}
	return tokens, nil
}

// BaseCommand returns the first token of a command line. This is the key used
// for installed-program facts.
func BaseCommand(line string) (string, error) {
	tokens, err := SplitCommand(line)
	if err != nil {
		return "", errors.Wrap(err, "failed to determine base command")
	}
	return tokens[0], nil
}

// ShortDuration shortens the string representation of a time.Duration by
// dropping zero-valued trailing units, e.g. "1m0s" becomes "1m".
func ShortDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// StripPrefixWord removes the given leading word from a command line, along
// with any surrounding whitespace. If the line does not start with the word,
// it is returned trimmed but otherwise unchanged.
func StripPrefixWord(line, word string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, word) {
		return trimmed
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, word))
}
