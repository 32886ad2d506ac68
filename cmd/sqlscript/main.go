// Command sqlscript splits SQL scripts into statements, honoring DELIMITER directives,
// and optionally executes them against a MySQL, MariaDB, PostgreSQL or SQLite database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/creasty/defaults"
	"github.com/mxs-workbench/sqlscript/config"
	"github.com/mxs-workbench/sqlscript/database"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/querylog"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	var flags Flags
	args, err := config.ParseFlags(&flags)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return ExitFailure
	}

	var conf Config
	if flags.Exec {
		err = config.Load(&conf, config.LoadOptions{
			Flags:      flags,
			EnvOptions: config.EnvOptions{Prefix: "SQLSCRIPT_"},
		})
	} else {
		// Splitting needs no database, so only logging is configured, from its defaults.
		err = defaults.Set(&conf.Logging)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", errors.Wrap(err, "can't load configuration"))
		return ExitFailure
	}

	logs, err := logging.NewLoggingFromConfig("sqlscript", conf.Logging)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errors.Wrap(err, "can't configure logging"))
		return ExitFailure
	}

	logger := logs.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scripts, err := readScripts(ctx, args, os.Stdin)
	if err != nil {
		logger.Errorw("Can't read SQL scripts", logging.Error(err))
		return ExitFailure
	}

	var outputs []scriptOutput
	var failed bool

	if flags.Exec {
		outputs, failed, err = execScripts(ctx, logs, &conf, scripts, flags.splitOptions())
		if err != nil {
			logger.Errorw("Can't execute SQL scripts", logging.Error(err))
			return ExitFailure
		}
	} else {
		outputs, failed = splitScripts(scripts, flags.splitOptions())
	}

	if err := writeOutputs(os.Stdout, flags.Format, outputs); err != nil {
		logger.Errorw("Can't write output", logging.Error(err))
		return ExitFailure
	}

	if failed {
		return ExitFailure
	}

	return ExitSuccess
}

// script is a named SQL script.
type script struct {
	name string
	sql  string
}

// readScripts reads the named files concurrently, keeping their order, or stdin if there are none.
// The name "-" also denotes stdin, which can only be given once.
func readScripts(ctx context.Context, names []string, stdin io.Reader) ([]script, error) {
	if len(names) == 0 {
		names = []string{"-"}
	}

	var stdins int
	for _, name := range names {
		if name == "-" {
			stdins++
		}
	}

	if stdins > 1 {
		return nil, errors.New("stdin (-) can only be given once")
	}

	scripts := make([]script, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range names {
		if name == "-" {
			raw, err := io.ReadAll(stdin)
			if err != nil {
				_ = g.Wait()

				return nil, errors.Wrap(err, "can't read stdin")
			}

			scripts[i] = script{name: "<stdin>", sql: string(raw)}

			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := os.ReadFile(name) // #nosec G304 -- the scripts are chosen by the user.
			if err != nil {
				return errors.Wrapf(err, "can't read %s", name)
			}

			scripts[i] = script{name: name, sql: string(raw)}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scripts, nil
}

// splitScripts splits all scripts concurrently. Outputs are in the order of scripts.
// A script which can't be split doesn't affect the others, but makes failed true.
func splitScripts(scripts []script, options []sqlsplit.Option) (outputs []scriptOutput, failed bool) {
	outputs = make([]scriptOutput, len(scripts))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, s := range scripts {
		g.Go(func() error {
			statements, err := sqlsplit.Split(s.sql, options...)
			outputs[i] = scriptOutput{File: s.name, Statements: statements}
			if err != nil {
				outputs[i].Error = err.Error()
			}

			return nil
		})
	}

	_ = g.Wait()

	for _, o := range outputs {
		if o.Error != "" {
			failed = true
		}
	}

	return outputs, failed
}

// execScripts runs the scripts one after another on the configured database and stops at the first failure.
// The returned error is only set for failures not caused by a script, such as an invalid configuration.
func execScripts(
	ctx context.Context, logs *logging.Logging, conf *Config, scripts []script, options []sqlsplit.Option,
) (outputs []scriptOutput, failed bool, err error) {
	dbLogger := logs.GetChildLogger("database")
	database.Register(dbLogger)

	db, err := database.NewDbFromConfig(&conf.Database, dbLogger, database.RetryConnectorCallbacks{})
	if err != nil {
		return nil, false, errors.Wrap(err, "can't create database connection pool from config")
	}
	defer func() { _ = db.Close() }()

	store, err := querylog.NewStoreFromConfig(&conf.QueryLog, logs.GetChildLogger("querylog"))
	if err != nil {
		return nil, false, err
	}

	logger := logs.GetLogger()
	logger.Infow("Executing SQL scripts", zap.String("database", db.GetAddr()), zap.Int("scripts", len(scripts)))

	for _, s := range scripts {
		result, err := db.ExecScript(ctx, s.sql, database.ExecOptions{
			Split:      options,
			QueryLog:   store,
			Connection: db.GetAddr(),
		})

		output := scriptOutput{File: s.name, Result: result}
		if err != nil {
			output.Error = err.Error()
			outputs = append(outputs, output)

			logger.Errorw("SQL script failed", zap.String("file", s.name), logging.Error(err))

			return outputs, true, nil
		}

		if result.SchemaChanged() {
			logger.Infow("SQL script changed the default schema", zap.String("file", s.name))
		}

		outputs = append(outputs, output)
	}

	return outputs, false, nil
}
