// Package logging builds the hclog loggers used by the library and the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Environment variables read by New and Level.
const (
	EnvJSON  = "ASSETPIX_JSON_LOG"
	EnvLevel = "ASSETPIX_LOG_LEVEL"
)

// New returns a logger writing to output (stderr when nil). JSON output is
// selected with ASSETPIX_JSON_LOG=1; otherwise lines carry a short prefix so
// they stand apart from tool output on a shared terminal.
func New(name, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	jsonFormat := os.Getenv(EnvJSON) == "1"
	if !jsonFormat {
		output = NewPrefixWriter("» ", output)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Level returns the level from ASSETPIX_LOG_LEVEL, "warn" when unset.
func Level() string {
	if level := os.Getenv(EnvLevel); level != "" {
		return level
	}
	return "warn"
}
