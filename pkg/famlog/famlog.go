// Package famlog constructs the two loggers FamDB wires through the
// rest of the codebase: a zap logger for the query engine, file-set
// coordinator and CLI (operational logging of what FamDB is doing), and
// a logrus logger for the container/storage layer (field-by-field
// key/path/operation context). Every package that wants to log
// takes one of these as a constructor argument rather than reaching for
// a package-level global, so tests can substitute a discard logger.
package famlog

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the CLI's `-l LEVEL` flag value, shared by both loggers so a
// single flag controls verbosity end to end.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps the CLI's `-l` flag text to a Level, defaulting to
// LevelInfo for an empty or unrecognized value.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelError:
		return zapcore.ErrorLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// NewOperational builds the zap logger used by the CLI, query engine
// and file-set coordinator. Output goes to stderr so stdout stays
// reserved for query results; logs must never interleave with them.
func NewOperational(level Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Config.Build only fails on a malformed encoder/sink name; both
		// are hardcoded above, so this cannot happen outside a
		// programmer error.
		panic(err)
	}
	return logger
}

// NewContainerLogger builds the logrus logger passed to pkg/container,
// field-tagged the way internal/keyValStore tagged its own operations.
func NewContainerLogger(level Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level.logrusLevel())
	log.SetFormatter(&logrus.TextFormatter{DisableColors: false, FullTimestamp: false})
	return log
}

// Discard returns a pair of loggers that drop everything, for tests that
// don't want log noise.
func Discard() (*zap.Logger, *logrus.Logger) {
	z := zap.NewNop()
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return z, l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
