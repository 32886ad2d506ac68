package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/periodic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"modernc.org/sqlite"
)

// DB is a wrapper around sqlx.DB which knows its configuration and logger.
type DB struct {
	*sqlx.DB

	Options *Options

	addr   string
	config *Config
	logger *logging.Logger
}

// NewDbFromConfig returns a new DB from Config.
// No connection is established yet, which happens lazily and with retries on first use.
func NewDbFromConfig(c *Config, logger *logging.Logger, connectorCallbacks RetryConnectorCallbacks) (*DB, error) {
	var addr string
	var db *sqlx.DB

	switch c.Type {
	case "mysql":
		config := mysql.NewConfig()

		config.User = c.User
		config.Passwd = c.Password
		config.DBName = c.Database
		config.Timeout = time.Minute

		if isUnixAddr(c.Host) {
			config.Net = "unix"
			config.Addr = c.Host
		} else {
			config.Net = "tcp"
			port := c.Port
			if port == 0 {
				port = 3306
			}
			config.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
		}

		tlsConfig, err := c.TlsOptions.MakeConfig(c.Host)
		if err != nil {
			return nil, err
		}

		if tlsConfig != nil {
			config.TLSConfig = "sqlscript-" + strconv.FormatInt(time.Now().UnixNano(), 36)
			if err := mysql.RegisterTLSConfig(config.TLSConfig, tlsConfig); err != nil {
				return nil, errors.Wrap(err, "can't register TLS config")
			}
		}

		connector, err := mysql.NewConnector(config)
		if err != nil {
			return nil, errors.Wrap(err, "can't open mysql database")
		}

		addr = config.Addr
		db = sqlx.NewDb(sql.OpenDB(NewConnector(
			connector, logger, mysqlInitConn(c.Options.StatementTimeout), connectorCallbacks,
		)), MySQL)
	case "pgsql":
		uri := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Path:   "/" + url.PathEscape(c.Database),
		}

		port := c.Port
		if port == 0 {
			port = 5432
		}

		// lib/pq can't parse a Unix domain socket path in the host part of the URI,
		// so host and port always go into the query string.
		query := url.Values{
			"connect_timeout":   {"60"},
			"binary_parameters": {"yes"},
			"host":              {c.Host},
			"port":              {strconv.Itoa(port)},
		}

		if c.TlsOptions.Enable {
			if c.TlsOptions.Insecure {
				query.Set("sslmode", "require")
			} else {
				query.Set("sslmode", "verify-full")
			}

			if c.TlsOptions.Cert != "" {
				query.Set("sslcert", c.TlsOptions.Cert)
			}

			if c.TlsOptions.Key != "" {
				query.Set("sslkey", c.TlsOptions.Key)
			}

			if c.TlsOptions.Ca != "" {
				query.Set("sslrootcert", c.TlsOptions.Ca)
			}
		} else {
			query.Set("sslmode", "disable")
		}

		if c.Options.StatementTimeout > 0 {
			query.Set("statement_timeout", strconv.FormatInt(c.Options.StatementTimeout.Milliseconds(), 10))
		}

		uri.RawQuery = query.Encode()

		connector, err := pq.NewConnector(uri.String())
		if err != nil {
			return nil, errors.Wrap(err, "can't open pgsql database")
		}

		if isUnixAddr(c.Host) {
			addr = filepath.Join(c.Host, ".s.PGSQL."+strconv.Itoa(port))
		} else {
			addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
		}

		db = sqlx.NewDb(sql.OpenDB(NewConnector(connector, logger, nil, connectorCallbacks)), PostgreSQL)
	case "sqlite":
		addr = c.Database
		db = sqlx.NewDb(sql.OpenDB(NewConnector(
			dsnConnector{dsn: c.Database, driver: &sqlite.Driver{}}, logger, nil, connectorCallbacks,
		)), SQLite)
	default:
		return nil, unknownDbType(c.Type)
	}

	if c.Options.MaxConnections > 0 {
		db.SetMaxOpenConns(c.Options.MaxConnections)
		db.SetMaxIdleConns(c.Options.MaxConnections)
	}

	return &DB{
		DB:      db,
		Options: &c.Options,
		addr:    addr,
		config:  c,
		logger:  logger,
	}, nil
}

// GetAddr returns a URI-like database connection string without the password.
//
// It has the following syntax:
//
//	type[+tls]://user@host[:port]/database
//
// Unix domain socket paths and SQLite files are put in parentheses.
func (db *DB) GetAddr() string {
	var addr strings.Builder

	switch db.DriverName() {
	case MySQL:
		addr.WriteString("mysql")
	case PostgreSQL:
		addr.WriteString("pgsql")
	case SQLite:
		return "sqlite://(" + db.addr + ")"
	}

	if db.config.TlsOptions.Enable {
		addr.WriteString("+tls")
	}

	addr.WriteString("://")

	if db.config.User != "" {
		addr.WriteString(db.config.User + "@")
	}

	if isUnixAddr(db.addr) {
		addr.WriteString("(" + db.addr + ")")
	} else {
		addr.WriteString(db.addr)
	}

	if db.config.Database != "" {
		addr.WriteString("/" + db.config.Database)
	}

	return addr.String()
}

// logProgress logs how many of total statements have been executed every time the logger's interval elapses,
// until ctx is done or the returned Stopper is stopped.
func (db *DB) logProgress(ctx context.Context, executed func() int, total int) periodic.Stopper {
	interval := db.logger.Interval()
	if interval <= 0 {
		return nopStopper{}
	}

	return periodic.Start(ctx, interval, func(tick periodic.Tick) {
		db.logger.Infow(fmt.Sprintf("Executed %d of %d statements", executed(), total),
			zap.Duration("elapsed", tick.Elapsed))
	}, periodic.OnStop(func(tick periodic.Tick) {
		db.logger.Debugw(fmt.Sprintf("Finished after %d of %d statements", executed(), total),
			zap.Duration("took", tick.Elapsed))
	}))
}

type nopStopper struct{}

func (nopStopper) Stop() {}

// mysqlInitConn returns an InitConnFunc which limits the execution time of statements on MariaDB servers.
func mysqlInitConn(timeout time.Duration) InitConnFunc {
	if timeout <= 0 {
		return nil
	}

	seconds := strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64)

	return func(ctx context.Context, conn driver.Conn) error {
		return setSessionVariableIfExists(ctx, conn, "max_statement_time", seconds)
	}
}

func isUnixAddr(host string) bool {
	return strings.HasPrefix(host, "/")
}
