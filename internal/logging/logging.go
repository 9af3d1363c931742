// Package logging centralizes zerolog setup: a console-pretty writer in
// debug mode, structured JSON otherwise, with one child logger per
// component (spec.md's ambient logging surface — the teacher used the
// stdlib "log" package directly; every other pack repo with meaningful
// logging reaches for zerolog, so components here do too).
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the root logger. debug selects a human-readable console writer
// over os.Stderr and Debug level; otherwise it emits compact JSON at Info
// level, suitable for ingestion by a log pipeline.
func New(debug bool) zerolog.Logger {
	var w io.Writer = os.Stderr
	level := zerolog.InfoLevel
	if debug {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with its owning package name,
// e.g. Component(root, "proxy") for internal/proxy.
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
