package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

type Logger interface {
	Log(level LogLevel, format string, args ...interface{})
}

type Config struct {
	Level  LogLevel
	File   string
	Pretty bool
	Output io.Writer
}

type DefaultLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// NewDefaultLogger writes to cfg.Output (stdout when nil) and, if cfg.File is
// set, appends to that file as well.
func NewDefaultLogger(cfg Config) (*DefaultLogger, error) {
	var out io.Writer = cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	outputs := []io.Writer{out}
	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}
		file = f
		outputs = append(outputs, f)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Logger()

	return &DefaultLogger{logger: logger, file: file}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *DefaultLogger {
	return &DefaultLogger{logger: zerolog.Nop()}
}

// With returns a child logger tagged with the given component name.
func (l *DefaultLogger) With(component string) *DefaultLogger {
	return &DefaultLogger{
		logger: l.logger.With().Str("component", component).Logger(),
		file:   l.file,
	}
}

func (l *DefaultLogger) Log(level LogLevel, format string, args ...interface{}) {
	l.logger.WithLevel(ParseLevel(level)).Msg(fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToUpper(string(level)) {
	case string(LogLevelDebug):
		return zerolog.DebugLevel
	case string(LogLevelInfo):
		return zerolog.InfoLevel
	case string(LogLevelWarn), "WARNING":
		return zerolog.WarnLevel
	case string(LogLevelError):
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether ParseLevel recognizes level.
func ValidLevel(level LogLevel) bool {
	switch LogLevel(strings.ToUpper(string(level))) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, "WARNING", LogLevelError:
		return true
	}
	return false
}
