// Package redis provides a Redis client which connects with retries and logs connection problems.
package redis

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/retry"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is a wrapper around redis.Client which knows its options and logger.
type Client struct {
	*redis.Client

	options *Options
	logger  *logging.Logger
}

// NewClientFromConfig returns a new Client from Config.
// Connections are established lazily and retried on failure.
func NewClientFromConfig(c *Config, logger *logging.Logger) (*Client, error) {
	tlsConfig, err := c.TlsOptions.MakeConfig(c.Host)
	if err != nil {
		return nil, err
	}

	dl := &net.Dialer{Timeout: c.Options.DialTimeout}

	var dialer ctxDialerFunc
	if tlsConfig == nil {
		dialer = dl.DialContext
	} else {
		dialer = (&tls.Dialer{NetDialer: dl, Config: tlsConfig}).DialContext
	}

	options := &redis.Options{
		Dialer:       dialWithLogging(dialer, logger),
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.Database,
		ReadTimeout:  c.Options.Timeout,
		WriteTimeout: c.Options.Timeout,
		PoolSize:     c.Options.PoolSize,
		TLSConfig:    tlsConfig,
	}

	if strings.HasPrefix(c.Host, "/") {
		options.Network = "unix"
		options.Addr = c.Host
	} else {
		port := c.Port
		if port == 0 {
			port = 6379
		}

		options.Network = "tcp"
		options.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	}

	return &Client{Client: redis.NewClient(options), options: &c.Options, logger: logger}, nil
}

// GetAddr returns a URI-like Redis connection string without the password.
//
// It has the following syntax:
//
//	redis[+tls]://user@host[:port]/database
func (c *Client) GetAddr() string {
	opts := c.Options()

	description := "redis"
	if opts.TLSConfig != nil {
		description += "+tls"
	}
	description += "://"

	if opts.Username != "" {
		description += opts.Username + "@"
	}

	if strings.HasPrefix(opts.Addr, "/") {
		description += "(" + opts.Addr + ")"
	} else {
		description += opts.Addr
	}

	if opts.DB != 0 {
		description += "/" + strconv.Itoa(opts.DB)
	}

	return description
}

// Timeout returns the configured timeout for single commands, which is negative if there is none.
func (c *Client) Timeout() time.Duration {
	return c.options.Timeout
}

type ctxDialerFunc = func(ctx context.Context, network, addr string) (net.Conn, error)

// dialWithLogging returns a Redis dialer which retries dialing and logs failed attempts and reconnects.
func dialWithLogging(dialer ctxDialerFunc, logger *logging.Logger) ctxDialerFunc {
	return func(ctx context.Context, network, addr string) (conn net.Conn, err error) {
		err = retry.WithBackoff(
			ctx,
			func(ctx context.Context) (err error) {
				conn, err = dialer(ctx, network, addr)
				return
			},
			retry.Retryable,
			retry.DefaultBackoff(),
			retry.Settings{
				Timeout: retry.DefaultTimeout,
				OnRetryableError: func(_ time.Duration, _ uint64, err, lastErr error) {
					if lastErr == nil || err.Error() != lastErr.Error() {
						logger.Warnw("Can't connect to Redis. Retrying", logging.Error(err))
					}
				},
				OnSuccess: func(elapsed time.Duration, attempt uint64, _ error) {
					if attempt > 1 {
						logger.Infow("Reconnected to Redis",
							zap.Duration("after", elapsed), zap.Uint64("attempts", attempt))
					}
				},
			},
		)

		err = errors.Wrap(err, "can't connect to Redis")

		return
	}
}
