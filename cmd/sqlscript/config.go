package main

import (
	"github.com/mxs-workbench/sqlscript/database"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/querylog"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
	"github.com/pkg/errors"
)

// DefaultConfigPath is read if --config is not given. It may be missing if everything is set via environment.
const DefaultConfigPath = "/etc/sqlscript/config.yml"

// Flags defines the command line flags.
type Flags struct {
	Config             string `short:"c" long:"config" description:"path to config file (default: /etc/sqlscript/config.yml)"`
	Format             string `short:"f" long:"format" choice:"text" choice:"json" choice:"yaml" default:"text" description:"output format"`
	Exec               bool   `short:"x" long:"exec" description:"execute the statements instead of only printing them"`
	Delimiter          string `short:"d" long:"delimiter" default:";" description:"statement delimiter at the start of each script"`
	NoBackslashEscapes bool   `long:"no-backslash-escapes" description:"treat backslashes in strings literally, like NO_BACKSLASH_ESCAPES"`
}

// GetConfigPath implements config.Flags.
func (f Flags) GetConfigPath() string {
	if f.Config == "" {
		return DefaultConfigPath
	}

	return f.Config
}

// IsExplicitConfigPath implements config.Flags.
func (f Flags) IsExplicitConfigPath() bool {
	return f.Config != ""
}

func (f Flags) splitOptions() []sqlsplit.Option {
	options := []sqlsplit.Option{sqlsplit.WithDelimiter(f.Delimiter)}
	if f.NoBackslashEscapes {
		options = append(options, sqlsplit.WithoutBackslashEscapes())
	}

	return options
}

// Config defines the configuration for executing scripts.
type Config struct {
	Database database.Config `yaml:"database" envPrefix:"DATABASE_"`
	Logging  logging.Config  `yaml:"logging" envPrefix:"LOGGING_"`
	QueryLog querylog.Config `yaml:"querylog" envPrefix:"QUERYLOG_"`
}

// Validate checks constraints in the configuration and returns an error if they are violated.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return errors.Wrap(err, "invalid database configuration")
	}

	if err := c.Logging.Validate(); err != nil {
		return errors.Wrap(err, "invalid logging configuration")
	}

	if err := c.QueryLog.Validate(); err != nil {
		return errors.Wrap(err, "invalid query log configuration")
	}

	return nil
}
