//go:build windows
// +build windows

package terminal

import (
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
)

// getColorableWriter returns a writer that is capable of interpreting
// ANSI escape codes for terminal colors.
func getColorableWriter() io.Writer {
	if strings.ToLower(os.Getenv("ConEmuANSI")) == "on" {
		// The ConEmu terminal is installed. Use it.
		return os.Stdout
	}

	const enableVirtualTerminalProcessing = 0x0004

	h, err := syscall.GetStdHandle(syscall.STD_OUTPUT_HANDLE)
	if err != nil {
		return os.Stdout
	}
	var m uint32
	if err := syscall.GetConsoleMode(h, &m); err != nil {
		return os.Stdout
	}
	if m&enableVirtualTerminalProcessing != 0 {
		return os.Stdout
	}
	return colorable.NewColorableStdout()
}
