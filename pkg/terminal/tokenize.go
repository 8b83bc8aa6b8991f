package terminal

import (
	"errors"
	"strings"

	"github.com/cosiner/argv"
)

// MaxArgs bounds the size of a command line, counting the command word
// and a terminating slot.
const MaxArgs = 16

// ErrTooManyArgs is reported when a command line has more than
// MaxArgs-1 words.
var ErrTooManyArgs = errors.New("too many arguments (max 16)")

// tokenize splits a command line into words. Whitespace separates
// words; quoting follows shell rules.
func tokenize(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	sections, err := argv.Argv(line, func(s string) (string, error) {
		return "", errors.New("subcommands not supported")
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(sections) > 1 {
		return nil, errors.New("pipelines not supported")
	}
	args := sections[0]
	if len(args) >= MaxArgs {
		return nil, ErrTooManyArgs
	}
	return args, nil
}
