package logging

import (
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options map child logger names, such as database or querylog, to their log level.
type Options map[string]zapcore.Level

// UnmarshalText implements encoding.TextUnmarshaler, so that Options can be set from the environment
// as a list like "database:debug, querylog:warn". Each child logger may appear only once.
func (o *Options) UnmarshalText(text []byte) error {
	options := make(Options)

	if strings.TrimSpace(string(text)) == "" {
		*o = options
		return nil
	}

	for _, entry := range strings.Split(string(text), ",") {
		name, level, found := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)

		if !found || name == "" {
			return errors.Errorf("logging option %q must be of the form name:level", strings.TrimSpace(entry))
		}

		if _, ok := options[name]; ok {
			return errors.Errorf("logging option for %q given more than once", name)
		}

		lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
		if err != nil {
			return errors.Wrapf(err, "invalid level for logger %q", name)
		}

		options[name] = lvl
	}

	*o = options

	return nil
}

// Level returns the level enabler of the named child logger, or fallback if none is configured.
func (o Options) Level(name string, fallback zapcore.LevelEnabler) zapcore.LevelEnabler {
	if lvl, ok := o[name]; ok {
		return zap.NewAtomicLevelAt(lvl)
	}

	return fallback
}

// Config defines Logger configuration.
type Config struct {
	// Level of the main logger and of child loggers without options. The zero value is info.
	Level  zapcore.Level `yaml:"level" env:"LEVEL" default:"0"`
	Output string        `yaml:"output" env:"OUTPUT"`
	// Interval in which long-running scripts log their progress.
	Interval time.Duration `yaml:"interval" env:"INTERVAL" default:"20s"`

	Options `yaml:"options" env:"OPTIONS"`
}

// SetDefaults implements defaults.Setter. Unless configured, sqlscript logs to
// systemd-journald when run as a notify unit and to stderr otherwise.
func (c *Config) SetDefaults() {
	if !defaults.CanUpdate(c.Output) {
		return
	}

	if _, ok := os.LookupEnv("NOTIFY_SOCKET"); ok {
		c.Output = JOURNAL
	} else {
		c.Output = CONSOLE
	}
}

// Validate checks constraints in the configuration and returns an error if they are violated.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("periodic logging interval must be positive")
	}

	for name := range c.Options {
		if strings.TrimSpace(name) == "" {
			return errors.New("logging options must name a child logger")
		}
	}

	return AssertOutput(c.Output)
}

// AssertOutput returns an error if o is neither CONSOLE nor JOURNAL.
func AssertOutput(o string) error {
	switch o {
	case CONSOLE, JOURNAL:
		return nil
	default:
		return errors.Errorf("%q is not a valid logger output, must be either %q or %q", o, CONSOLE, JOURNAL)
	}
}
