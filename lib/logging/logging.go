// Package logging provides the named, leveled loggers used across the
// application. All loggers share one console core and one atomic level so
// the verbosity can be changed in a single place at startup.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base    *zap.Logger
	loggers = map[string]*zap.SugaredLogger{}
)

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// GetLogger returns the logger for the given component name, creating it on
// first use. Loggers are cached, calling GetLogger twice with the same name
// returns the same instance.
func GetLogger(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	if base == nil {
		base = newBaseLogger()
	}

	l := base.Named(name).Sugar()
	loggers[name] = l
	return l
}

// newBaseLogger builds the shared console logger all named loggers derive from
func newBaseLogger() *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",

		LevelKey:    "level",
		EncodeLevel: zapcore.CapitalLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.ISO8601TimeEncoder,

		NameKey:    "logger",
		EncodeName: zapcore.FullNameEncoder,

		ConsoleSeparator: " | ",
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	return zap.New(core)
}

// --------------------------------------------------------------------------
// Level Handling
// --------------------------------------------------------------------------

// SetLevel changes the level of all loggers. Accepted values are
// debug, info, warn and error.
func SetLevel(s string) error {
	l, err := parseLevel(s)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// parseLevel converts a string level to a zapcore.Level
func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warning", "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", s)
	}
}
