package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/derekparker/trie"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/penguinnnnn/kmon/pkg/config"
	"github.com/penguinnnnn/kmon/pkg/kernel"
	"github.com/penguinnnnn/kmon/pkg/logflags"
)

const (
	historyFile string = ".kmon_history"

	terminalHighlightEscapeCode string = "\033[%dm"
	terminalResetEscapeCode     string = "\033[0m"
)

// Term represents the monitor prompt.
type Term struct {
	target kernel.Target
	conf   *config.Config
	prompt string
	line   *liner.State
	cmds   *Commands
	dumb   bool
	stdout io.Writer
	// InitFile is replayed through the dispatcher before the first
	// prompt.
	InitFile string

	trapFrame    *kernel.TrapFrame
	displayColor int
	maxDepth     int

	historyFile *os.File
	completions *trie.Trie
}

// New returns a monitor prompt for the given target.
func New(target kernel.Target, conf *config.Config) *Term {
	cmds := MonitorCommands(conf)
	if conf != nil && conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb"
	if !dumb && !isatty.IsTerminal(os.Stdout.Fd()) {
		dumb = true
	}

	t := &Term{
		target:    target,
		conf:      conf,
		prompt:    "K> ",
		line:      liner.NewLiner(),
		cmds:      cmds,
		dumb:      dumb,
		stdout:    getColorableWriter(),
		trapFrame: target.TrapFrame(),
		maxDepth:  conf.GetMaxBacktraceDepth(),
	}
	if conf != nil {
		t.displayColor = conf.DisplayColor &^ 0x11
	}

	t.completions = trie.New()
	for _, cmd := range cmds.cmds {
		for _, alias := range cmd.aliases {
			t.completions.Add(alias, nil)
		}
	}
	t.line.SetCompleter(func(line string) []string {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		return t.completions.PrefixSearch(line)
	})

	return t
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.historyFile != nil {
		if _, err := t.line.WriteHistory(t.historyFile); err != nil {
			fmt.Fprintf(os.Stderr, "readline history error: %v\n", err)
		}
		t.historyFile.Close()
		t.historyFile = nil
	}
	t.line.Close()
}

// Run begins running the monitor in the terminal.
func (t *Term) Run() (int, error) {
	defer t.Close()

	logflags.MonitorLogger().Debugf("monitor session started")

	t.line.SetCtrlCAborts(true)

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load history file: %v.\n", err)
	} else {
		if f, err := os.Open(fullHistoryFile); err == nil {
			t.line.ReadHistory(f)
			f.Close()
		}
		t.historyFile, err = os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to open history file: %v. History will not be saved for this session.\n", err)
		}
	}

	fmt.Fprintln(t.stdout, "Welcome to the kmon kernel monitor!")
	fmt.Fprintln(t.stdout, "Type 'help' for a list of commands.")
	if t.trapFrame != nil {
		fmt.Fprintln(t.stdout, t.trapFrame)
	}

	if t.InitFile != "" {
		err := t.executeFile(t.InitFile)
		if err != nil {
			switch err.(type) {
			case ExitRequestError, ResumeRequestError:
				return 0, nil
			default:
				fmt.Fprintf(os.Stderr, "Error executing init file: %v\n", err)
			}
		}
	}

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return 0, nil
			}
			if err == liner.ErrPromptAborted {
				continue
			}
			return 1, fmt.Errorf("prompt for input failed.\n")
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			switch err.(type) {
			case ExitRequestError, ResumeRequestError:
				return 0, nil
			default:
				fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
			}
		}
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}
	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}
	return l, nil
}

// executeFile replays the commands of an init file through the
// dispatcher. Blank lines and # comments are skipped; the resume and
// exit sentinels stop the replay and propagate.
func (t *Term) executeFile(name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	lineno := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineno++
		if line == "" || line[0] == '#' {
			continue
		}
		if err := t.cmds.Call(line, t); err != nil {
			switch err.(type) {
			case ExitRequestError, ResumeRequestError:
				return err
			default:
				fmt.Fprintf(os.Stderr, "%s:%d: %v\n", name, lineno, err)
			}
		}
	}
	return scanner.Err()
}

// addr formats an address, highlighted with the session display color
// when the terminal supports it.
func (t *Term) addr(v uint32) string {
	return t.addr64(uint64(v))
}

// addr64 is addr for page-boundary labels, which may sit one past the
// top of the 32-bit address space.
func (t *Term) addr64(v uint64) string {
	if t.dumb || t.displayColor == 0 {
		return fmt.Sprintf("%08x", v)
	}
	return fmt.Sprintf(terminalHighlightEscapeCode+"%08x"+terminalResetEscapeCode, t.displayColor, v)
}
