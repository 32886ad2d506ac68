package querylog

import (
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/redis"
	"github.com/pkg/errors"
)

// Config defines where the query log is kept.
type Config struct {
	Backend string       `yaml:"backend" env:"BACKEND" default:"memory"`
	Size    int          `yaml:"size" env:"SIZE" default:"1000"`
	Key     string       `yaml:"key" env:"KEY" default:"sqlscript:querylog"`
	Redis   redis.Config `yaml:"redis" envPrefix:"REDIS_"`
}

// Validate checks constraints in the supplied query log configuration and returns an error if they are violated.
func (c *Config) Validate() error {
	if c.Size < 1 {
		return errors.New("query log size must be at least 1")
	}

	switch c.Backend {
	case "memory":
		return nil
	case "redis":
		if c.Key == "" {
			return errors.New("query log key missing")
		}

		return c.Redis.Validate()
	default:
		return errors.Errorf(`unknown query log backend %q, must be one of: "memory", "redis"`, c.Backend)
	}
}

// NewStoreFromConfig returns the Store configured by c.
func NewStoreFromConfig(c *Config, logger *logging.Logger) (Store, error) {
	switch c.Backend {
	case "memory":
		return NewMemoryStore(c.Size), nil
	case "redis":
		client, err := redis.NewClientFromConfig(&c.Redis, logger)
		if err != nil {
			return nil, errors.Wrap(err, "can't create Redis client")
		}

		logger.Debugw("Keeping query log in Redis", "addr", client.GetAddr(), "key", c.Key)

		return NewRedisStore(client, c.Key, c.Size), nil
	default:
		return nil, errors.Errorf("unknown query log backend %q", c.Backend)
	}
}
