package database

import (
	"context"
	"database/sql/driver"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/retry"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Driver names as registered in the database/sql package.
const (
	MySQL      string = "mysql"
	PostgreSQL string = "postgres"
	SQLite     string = "sqlite"
)

// InitConnFunc is called on every new connection before it is handed out.
type InitConnFunc func(context.Context, driver.Conn) error

// RetryConnectorCallbacks are called by RetryConnector in addition to its own logging.
type RetryConnectorCallbacks struct {
	OnRetryableError retry.OnRetryableErrorFunc
	OnSuccess        retry.OnSuccessFunc
}

// RetryConnector wraps driver.Connector with retry logic.
type RetryConnector struct {
	driver.Connector

	callbacks RetryConnectorCallbacks

	logger *logging.Logger

	// initConn, if not nil, runs after each successful Connect.
	// If it fails, the connection is closed and the attempt is retried.
	initConn InitConnFunc
}

// NewConnector creates a fully initialized RetryConnector from the given args.
func NewConnector(
	c driver.Connector, logger *logging.Logger, init InitConnFunc, callbacks RetryConnectorCallbacks,
) *RetryConnector {
	return &RetryConnector{Connector: c, logger: logger, initConn: init, callbacks: callbacks}
}

// Connect implements part of the driver.Connector interface.
func (c RetryConnector) Connect(ctx context.Context) (driver.Conn, error) {
	var conn driver.Conn
	err := errors.Wrap(retry.WithBackoff(
		ctx,
		func(ctx context.Context) (err error) {
			conn, err = c.Connector.Connect(ctx)
			if err == nil && c.initConn != nil {
				if err = c.initConn(ctx, conn); err != nil {
					_ = conn.Close()
				}
			}

			return
		},
		retry.Retryable,
		retry.DefaultBackoff(),
		retry.Settings{
			Timeout: retry.DefaultTimeout,
			OnRetryableError: func(elapsed time.Duration, attempt uint64, err, lastErr error) {
				if c.callbacks.OnRetryableError != nil {
					c.callbacks.OnRetryableError(elapsed, attempt, err, lastErr)
				}

				if lastErr == nil || err.Error() != lastErr.Error() {
					c.logger.Warnw("Can't connect to database. Retrying", logging.Error(err))
				}
			},
			OnSuccess: func(elapsed time.Duration, attempt uint64, lastErr error) {
				if c.callbacks.OnSuccess != nil {
					c.callbacks.OnSuccess(elapsed, attempt, lastErr)
				}

				if attempt > 1 {
					c.logger.Infow("Reconnected to database",
						zap.Duration("after", elapsed), zap.Uint64("attempts", attempt))
				}
			},
		},
	), "can't connect to database")

	return conn, err
}

// Driver implements part of the driver.Connector interface.
func (c RetryConnector) Driver() driver.Driver {
	return c.Connector.Driver()
}

// dsnConnector turns a driver without driver.DriverContext support into a driver.Connector.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver {
	return c.driver
}

// Register routes the log output of the mysql driver to logger.
func Register(logger *logging.Logger) {
	_ = mysql.SetLogger(mysqlLogger(func(v ...interface{}) { logger.Debug(v...) }))
}

// mysqlLogger is an adapter that allows ordinary functions to be used as a logger for mysql.SetLogger.
type mysqlLogger func(v ...interface{})

// Print implements the mysql.Logger interface.
func (log mysqlLogger) Print(v ...interface{}) {
	log(v...)
}
