package logging

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	CONSOLE = "console"
	JOURNAL = "systemd-journald"
)

// Logger wraps a zap.SugaredLogger and carries the interval in which long-running
// operations should report their progress.
type Logger struct {
	*zap.SugaredLogger
	interval time.Duration
}

// NewLogger returns a new Logger.
func NewLogger(base *zap.SugaredLogger, interval time.Duration) *Logger {
	return &Logger{
		SugaredLogger: base,
		interval:      interval,
	}
}

// Interval returns the interval for periodic logging.
func (l *Logger) Interval() time.Duration {
	return l.interval
}

// Logging creates named child loggers sharing one output, each with its own level.
type Logging struct {
	name    string
	logger  *Logger
	output  string
	newCore func(zapcore.LevelEnabler) zapcore.Core
	// verbosity is the default level of the root logger and all child loggers without an explicit level.
	verbosity zap.AtomicLevel
	interval  time.Duration

	mu      sync.Mutex
	loggers map[string]*Logger

	options Options
}

// NewLogging takes the name and log level for the default logger,
// output where log messages are written to,
// options having log levels for named child loggers
// and returns a new Logging.
func NewLogging(name string, level zapcore.Level, output string, options Options, interval time.Duration) (*Logging, error) {
	verbosity := zap.NewAtomicLevelAt(level)

	var newCore func(zapcore.LevelEnabler) zapcore.Core
	switch output {
	case CONSOLE:
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		newCore = func(enab zapcore.LevelEnabler) zapcore.Core {
			return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), enab)
		}
	case JOURNAL:
		newCore = func(enab zapcore.LevelEnabler) zapcore.Core {
			return NewJournaldCore(name, enab)
		}
	default:
		return nil, AssertOutput(output)
	}

	logger := NewLogger(zap.New(newCore(verbosity)).Named(name).Sugar(), interval)

	return &Logging{
		name:      name,
		newCore:   newCore,
		logger:    logger,
		output:    output,
		verbosity: verbosity,
		interval:  interval,
		loggers:   make(map[string]*Logger),
		options:   options,
	}, nil
}

// NewLoggingFromConfig returns a new Logging from Config.
func NewLoggingFromConfig(name string, c Config) (*Logging, error) {
	l, err := NewLogging(name, c.Level, c.Output, c.Options, c.Interval)

	return l, errors.Wrap(err, "can't initialize logging")
}

// GetChildLogger returns a named child logger.
// Log levels for named child loggers are obtained from the logging options and,
// if not found, set to the default log level.
func (l *Logging) GetChildLogger(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if logger, ok := l.loggers[name]; ok {
		return logger
	}

	child := zap.New(l.newCore(l.options.Level(name, l.verbosity))).Named(l.name).Named(name)
	logger := NewLogger(child.Sugar(), l.interval)
	l.loggers[name] = logger

	return logger
}

// GetLogger returns the default logger.
func (l *Logging) GetLogger() *Logger {
	return l.logger
}
