// Package logger wraps zerolog with the key/value call style used across the repo.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luxfi/safe4337/pkg/utils"
)

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Init configures the process-wide logger. Any environment other than
// "production" gets the human readable console writer.
func Init(environment string, debug bool) {
	var out io.Writer = os.Stderr
	if environment != "production" {
		out = utils.ZerologConsoleWriter()
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	mu.Lock()
	log = zerolog.New(out).With().Timestamp().Str("env", environment).Logger().Level(level)
	mu.Unlock()
}

// SetOutput redirects the logger, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	log = log.Output(w)
	mu.Unlock()
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", name).Logger()
}

func Debug(msg string, keyValues ...interface{}) {
	emit(current().Debug(), msg, keyValues)
}

func Info(msg string, keyValues ...interface{}) {
	emit(current().Info(), msg, keyValues)
}

func Warn(msg string, keyValues ...interface{}) {
	emit(current().Warn(), msg, keyValues)
}

// Error logs msg with err attached. err may be nil.
func Error(msg string, err error, keyValues ...interface{}) {
	emit(current().Error().Err(err), msg, keyValues)
}

// Fatal logs and exits the process.
func Fatal(msg string, err error, keyValues ...interface{}) {
	emit(current().Fatal().Err(err), msg, keyValues)
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

func emit(ev *zerolog.Event, msg string, keyValues []interface{}) {
	if ev == nil {
		return
	}
	for i := 0; i < len(keyValues); i += 2 {
		key := fmt.Sprint(keyValues[i])
		if i+1 >= len(keyValues) {
			ev = ev.Interface(key, nil)
			break
		}
		ev = ev.Interface(key, keyValues[i+1])
	}
	ev.Msg(msg)
}
