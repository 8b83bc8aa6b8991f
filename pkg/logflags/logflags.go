// Package logflags routes debug logging for the monitor's components.
package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var monitor = false
var kernel = false
var core = false

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Monitor returns true if the terminal package should log command
// dispatch.
func Monitor() bool {
	return monitor
}

// MonitorLogger returns a logger for the command dispatcher.
func MonitorLogger() *logrus.Entry {
	return makeLogger(monitor, logrus.Fields{"layer": "monitor"})
}

// Kernel returns true if the kernel model should log.
func Kernel() bool {
	return kernel
}

// KernelLogger returns a logger for the kernel model package.
func KernelLogger() *logrus.Entry {
	return makeLogger(kernel, logrus.Fields{"layer": "kernel"})
}

// Core returns true if the snapshot backend should log.
func Core() bool {
	return core
}

// CoreLogger returns a logger for the snapshot backend.
func CoreLogger() *logrus.Entry {
	return makeLogger(core, logrus.Fields{"layer": "core"})
}

// Setup sets the debug logging configuration from the command line
// flags. logstr is a comma separated list of component names.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "monitor"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "monitor":
			monitor = true
		case "kernel":
			kernel = true
		case "core":
			core = true
		}
	}
	return nil
}
