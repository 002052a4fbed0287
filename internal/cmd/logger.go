package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/mattn/go-isatty"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

// newLogger writes colored, sorted output for humans on a terminal and JSON
// for everything else. Debug JSON records carry their source position.
func newLogger(w io.Writer, level string, terminal bool) (*slog.Logger, error) {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}

	opts := &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed <= slog.LevelDebug,
	}

	var handler slog.Handler
	if terminal {
		handler = devslog.NewHandler(w, &devslog.Options{
			HandlerOptions:     opts,
			SortKeys:           true,
			TimeFormat:         "[15:04:05.000]",
			MaxErrorStackTrace: 5,
		})
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("app", "memoria", "version", VERSION), nil
}

func initLogger(level string) error {
	logger, err := newLogger(os.Stdout, level, isatty.IsTerminal(os.Stdout.Fd()))
	if err != nil {
		return err
	}

	slog.SetDefault(logger)

	return nil
}
