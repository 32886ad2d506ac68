package redis

import (
	"time"

	"github.com/mxs-workbench/sqlscript/config"
	"github.com/pkg/errors"
)

// Options define user configurable Redis options.
type Options struct {
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT" default:"15s"`
	PoolSize    int           `yaml:"pool_size" env:"POOL_SIZE" default:"2"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT" default:"30s"`
}

// Validate checks constraints in the supplied Redis options and returns an error if they are violated.
func (o *Options) Validate() error {
	if o.DialTimeout <= 0 {
		return errors.New("dial_timeout must be positive")
	}
	if o.PoolSize < 1 {
		return errors.New("pool_size must be at least 1")
	}
	if o.Timeout == 0 {
		return errors.New("timeout cannot be 0. Configure a value greater than zero, or use -1 for no timeout")
	}

	return nil
}

// Config defines Redis client configuration.
type Config struct {
	Host         string     `yaml:"host" env:"HOST"`
	Port         int        `yaml:"port" env:"PORT"`
	Username     string     `yaml:"username" env:"USERNAME"`
	Password     string     `yaml:"password" env:"PASSWORD,unset"` // #nosec G117 -- exported password field
	PasswordFile string     `yaml:"password_file" env:"PASSWORD_FILE"`
	Database     int        `yaml:"database" env:"DATABASE" default:"0"`
	TlsOptions   config.TLS `yaml:",inline"`
	Options      Options    `yaml:"options" envPrefix:"OPTIONS_"`
}

// Validate checks constraints in the supplied Redis configuration and returns an error if they are violated.
func (r *Config) Validate() error {
	if r.Host == "" {
		return errors.New("Redis host missing")
	}

	if err := config.LoadPasswordFile(&r.Password, r.PasswordFile); err != nil {
		return err
	}

	if r.Username != "" && r.Password == "" {
		return errors.New("Redis password must be set, if username is provided")
	}

	return r.Options.Validate()
}
