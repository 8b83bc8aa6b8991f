//go:build !windows
// +build !windows

package terminal

import (
	"io"
	"os"
)

func getColorableWriter() io.Writer {
	return os.Stdout
}
