package database

import (
	"time"

	"github.com/mxs-workbench/sqlscript/config"
	"github.com/pkg/errors"
)

// Config defines database client configuration.
type Config struct {
	Type         string     `yaml:"type" env:"TYPE" default:"mysql"`
	Host         string     `yaml:"host" env:"HOST"`
	Port         int        `yaml:"port" env:"PORT"`
	Database     string     `yaml:"database" env:"DATABASE"`
	User         string     `yaml:"user" env:"USER"`
	Password     string     `yaml:"password" env:"PASSWORD,unset"` // #nosec G117 -- exported password field
	PasswordFile string     `yaml:"password_file" env:"PASSWORD_FILE"`
	TlsOptions   config.TLS `yaml:",inline"`
	Options      Options    `yaml:"options" envPrefix:"OPTIONS_"`
}

// Validate checks constraints in the supplied database configuration and returns an error if they are violated.
func (c *Config) Validate() error {
	switch c.Type {
	case "mysql", "pgsql":
		if c.Host == "" {
			return errors.New("database host missing")
		}

		if c.User == "" {
			return errors.New("database user missing")
		}
	case "sqlite":
	default:
		return unknownDbType(c.Type)
	}

	if c.Database == "" {
		return errors.New("database name missing")
	}

	if err := config.LoadPasswordFile(&c.Password, c.PasswordFile); err != nil {
		return err
	}

	return c.Options.Validate()
}

// Options define user configurable database options.
type Options struct {
	// MaxConnections limits the number of open connections. Zero or less means no limit.
	MaxConnections int `yaml:"max_connections" env:"MAX_CONNECTIONS" default:"4"`

	// MaxRows limits the rows kept per result set of a script statement.
	MaxRows int `yaml:"max_rows" env:"MAX_ROWS" default:"10000"`

	// StatementTimeout, if positive, aborts statements running longer.
	// For MySQL and MariaDB it is also set as max_statement_time of each session where supported.
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"STATEMENT_TIMEOUT" default:"0s"`
}

// Validate checks constraints in the supplied database options and returns an error if they are violated.
func (o *Options) Validate() error {
	if o.MaxRows < 1 {
		return errors.New("max_rows must be at least 1")
	}

	if o.StatementTimeout < 0 {
		return errors.New("statement_timeout must not be negative")
	}

	return nil
}

func unknownDbType(t string) error {
	return errors.Errorf(`unknown database type %q, must be one of: "mysql", "pgsql", "sqlite"`, t)
}
