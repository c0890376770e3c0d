package log

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tacusci/logging/v2"
)

// Output receives debug, info and warn lines. The logging library binds
// those levels to stdout, which mvflow reserves for frame data, so they are
// written here instead, in the library's line format.
var Output io.Writer = color.Error

var Debug = debug

var Info = info

var Warn = warn

var Error = func(format string, a ...interface{}) {
	logging.Error(format, a...) //nolint
}

var Fatal = func(format string, a ...interface{}) {
	logging.Fatal(format, a...) //nolint
}

var (
	debugLabel = color.New(color.FgYellow).SprintFunc()
	infoLabel  = color.New(color.FgGreen).SprintFunc()
	warnLabel  = color.New(color.FgYellow).SprintFunc()
)

func debug(format string, a ...interface{}) {
	write(debugLabel("DEBUG"), format, a...)
}

func info(format string, a ...interface{}) {
	write(infoLabel("INFO"), format, a...)
}

func warn(format string, a ...interface{}) {
	write(warnLabel("WARN"), format, a...)
}

func write(label, format string, a ...interface{}) {
	fmt.Fprintf(Output, "%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), label, fmt.Sprintf(format, a...))
}

func noop(string, ...interface{}) {}

// SetLevel configures which of the wrapper funcs produce output. Anything
// below the chosen level becomes a no-op. Error always reaches stderr.
func SetLevel(level string) {
	logging.ColorLogLevelLabelOnly = true
	logging.CallbackLabelLevel = 5
	logging.CallbackLabel = false
	logging.CurrentLoggingLevel = logging.DebugLevel
	Debug, Info, Warn = debug, info, warn

	switch strings.ToLower(level) {
	case "debug":
		logging.CallbackLabel = true
	case "info":
		Debug = noop
	case "warn":
		Debug, Info = noop, noop
	default:
		Debug, Info, Warn = noop, noop, noop
	}
}
