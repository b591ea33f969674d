// Package logger wraps zerolog behind the small interface the wiki uses.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go-wiki-engine/internal/config"

	"github.com/rs/zerolog"
)

// Logger defines a standard interface for logging.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error, msg string)
	Fatal(err error, msg string)
	With(fields map[string]interface{}) Logger
}

type zerologLogger struct {
	logger zerolog.Logger
}

// ParseLevel maps a configured level name onto zerolog. An empty name is
// info.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// New builds a Logger writing to w, or to stdout when w is nil. The
// "console" format is human readable; anything else writes JSON lines. An
// invalid level falls back to info and says so on the new logger.
func New(cfg config.LogConfig, w io.Writer) Logger {
	if w == nil {
		w = os.Stdout
	}
	output := w
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stdout, TimeFormat: "15:04:05"}
	}

	level, levelErr := ParseLevel(cfg.Level)
	l := &zerologLogger{logger: zerolog.New(output).Level(level).With().Timestamp().Logger()}
	if levelErr != nil {
		l.Warn(levelErr.Error() + ", defaulting to info")
	}
	return l
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// Component tags every entry of l with the subsystem that wrote it.
func Component(l Logger, name string) Logger {
	return l.With(map[string]interface{}{"component": name})
}

func (l *zerologLogger) Debug(msg string) { l.logger.Debug().Msg(msg) }

func (l *zerologLogger) Info(msg string) { l.logger.Info().Msg(msg) }

func (l *zerologLogger) Warn(msg string) { l.logger.Warn().Msg(msg) }

func (l *zerologLogger) Error(err error, msg string) { l.logger.Error().Err(err).Msg(msg) }

func (l *zerologLogger) Fatal(err error, msg string) { l.logger.Fatal().Err(err).Msg(msg) }

// With creates a sub-logger with additional fields.
func (l *zerologLogger) With(fields map[string]interface{}) Logger {
	return &zerologLogger{logger: l.logger.With().Fields(fields).Logger()}
}
