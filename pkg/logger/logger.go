// Package logger provides a configurable logger shared across pipeline components.
//
// The root logger uses github.com/rs/zerolog with a console writer.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var root zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	root = zerolog.New(output).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		root = zerolog.Nop()
	}
}

// SetOutput changes the output of the global logger.
func SetOutput(w io.Writer) {
	root = root.Output(w)
}

// Set allows overriding the global logger.
func Set(l zerolog.Logger) {
	root = l
}

// Disable disables logging.
func Disable() {
	root = zerolog.Nop()
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return root
}

// Component returns a sublogger tagged with a component name.
func Component(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
