// Package logging builds the zerolog logger shared by the CLI, the runner
// and the HIL link.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel accepts zerolog level names case-insensitively. An empty
// string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
	return lvl, nil
}

// New returns a timestamped logger writing to w. Pretty selects the
// human-readable console format instead of JSON lines.
func New(level string, pretty bool, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
