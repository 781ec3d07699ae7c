// Package logging holds the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the global logfmt logger. Commands replace it via Configure.
var Logger log.Logger

func init() {
	Logger = New(os.Stderr, "info")
}

// New returns a logfmt logger writing to w that drops entries below lvl
// (debug, info, warn or error).
func New(w io.Writer, lvl string) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(w))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(l, levelOption(lvl))
}

// Configure replaces the global Logger.
func Configure(w io.Writer, lvl string) {
	Logger = New(w, lvl)
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}
