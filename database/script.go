package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/mxs-workbench/sqlscript/querylog"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnsplittable is returned by ExecScript if the script can't be split into statements.
// The error also wraps the *sqlsplit.SplitError describing the position.
var ErrUnsplittable = stderrors.New("SQL could not be split into statements")

// StatementError is returned by ExecScript if a statement of the script fails.
type StatementError struct {
	// Index is the zero-based position of the failed statement in the script.
	Index     int
	Statement sqlsplit.Statement
	Err       error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d at offset %d failed: %s", e.Index+1, e.Statement.StartOffset, e.Err)
}

// Unwrap returns the error of the database driver.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// ExecOptions configure a single ExecScript call.
type ExecOptions struct {
	// Split is passed to sqlsplit.Split.
	Split []sqlsplit.Option

	// MaxRows, if positive, overrides Options.MaxRows.
	MaxRows int

	// QueryLog, if not nil, receives an entry for every executed statement.
	QueryLog querylog.Store

	// Connection names the connection in query log entries.
	Connection string

	// LogType is the type of query log entries. Defaults to querylog.User.
	LogType querylog.Type
}

// StatementResult is the outcome of a single statement.
type StatementResult struct {
	Statement sqlsplit.Statement `json:"statement" yaml:"statement"`

	// Columns and Rows are set for statements which return rows.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Truncated reports that more rows were available than have been kept.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	RowsAffected int64         `json:"rows_affected" yaml:"rows_affected"`
	Duration     time.Duration `json:"duration" yaml:"duration"`

	// SchemaChanged reports that the statement changed or dropped the default schema of the session.
	SchemaChanged bool `json:"schema_changed,omitempty" yaml:"schema_changed,omitempty"`
}

// ScriptResult is the outcome of ExecScript.
type ScriptResult struct {
	Statements []StatementResult `json:"statements" yaml:"statements"`
	Duration   time.Duration     `json:"duration" yaml:"duration"`
}

// SchemaChanged reports whether any statement changed or dropped the default schema of the session.
func (r *ScriptResult) SchemaChanged() bool {
	for _, stmt := range r.Statements {
		if stmt.SchemaChanged {
			return true
		}
	}

	return false
}

// rowKeywords are leading keywords of statements which return a result set.
var rowKeywords = map[string]struct{}{
	"ANALYZE":  {},
	"CALL":     {},
	"CHECK":    {},
	"CHECKSUM": {},
	"DESC":     {},
	"DESCRIBE": {},
	"EXPLAIN":  {},
	"HELP":     {},
	"OPTIMIZE": {},
	"PRAGMA":   {},
	"REPAIR":   {},
	"SELECT":   {},
	"SHOW":     {},
	"TABLE":    {},
	"VALUES":   {},
	"WITH":     {},
}

// ExecScript splits script into statements and executes them one after another on a single connection,
// so that session state such as USE or variables carries over from one statement to the next.
//
// Nothing is executed if the script can't be split, in which case the error wraps ErrUnsplittable.
// The first failing statement stops the script. Then the results so far are returned along with a *StatementError.
func (db *DB) ExecScript(ctx context.Context, script string, opts ExecOptions) (*ScriptResult, error) {
	statements, err := sqlsplit.Split(script, opts.Split...)
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("%w: %w", ErrUnsplittable, err))
	}

	if opts.MaxRows <= 0 {
		opts.MaxRows = db.Options.MaxRows
	}
	if opts.LogType == "" {
		opts.LogType = querylog.User
	}

	result := &ScriptResult{Statements: make([]StatementResult, 0, len(statements))}
	if len(statements) == 0 {
		return result, nil
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return result, errors.Wrap(err, "can't get database connection")
	}
	defer func() { _ = conn.Close() }()

	var executed atomic.Int64
	if len(statements) > 1 {
		defer db.logProgress(ctx, func() int { return int(executed.Load()) }, len(statements)).Stop()
	}

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrapf(err, "script aborted before statement %d", i+1)
		}

		sr, err := db.execStatement(ctx, conn, stmt, opts.MaxRows)
		db.pushQueryLog(ctx, opts, stmt, sr, err)

		if err != nil {
			return result, &StatementError{Index: i, Statement: stmt, Err: err}
		}

		result.Statements = append(result.Statements, sr)
		executed.Add(1)

		db.logger.Debugw("Executed statement",
			zap.String("statement", stmt.Text), zap.Duration("took", sr.Duration), zap.Int64("rows_affected", sr.RowsAffected))
	}

	return result, nil
}

// execStatement executes a single statement on conn and keeps up to maxRows rows if it returns any.
func (db *DB) execStatement(
	ctx context.Context, conn *sqlx.Conn, stmt sqlsplit.Statement, maxRows int,
) (sr StatementResult, err error) {
	sr = StatementResult{Statement: stmt, SchemaChanged: changesSchema(stmt.Text)}

	if db.Options.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.Options.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { sr.Duration = time.Since(start) }()

	if _, ok := rowKeywords[sqlsplit.Keyword(stmt.Text)]; !ok {
		res, err := conn.ExecContext(ctx, stmt.Text)
		if err != nil {
			return sr, CantPerformQuery(err, stmt.Text)
		}

		if n, err := res.RowsAffected(); err == nil {
			sr.RowsAffected = n
		}

		return sr, nil
	}

	rows, err := conn.QueryxContext(ctx, stmt.Text)
	if err != nil {
		return sr, CantPerformQuery(err, stmt.Text)
	}
	defer func() { _ = rows.Close() }()

	sr.Columns, err = rows.Columns()
	if err != nil {
		return sr, errors.Wrap(err, "can't get result columns")
	}

	sr.Rows = [][]any{}
	for rows.Next() {
		if maxRows > 0 && len(sr.Rows) >= maxRows {
			sr.Truncated = true
			break
		}

		row, err := rows.SliceScan()
		if err != nil {
			return sr, errors.Wrap(err, "can't scan row")
		}

		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}

		sr.Rows = append(sr.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return sr, CantPerformQuery(err, stmt.Text)
	}

	return sr, nil
}

// pushQueryLog records an executed statement. Failures are logged but don't affect the script.
func (db *DB) pushQueryLog(
	ctx context.Context, opts ExecOptions, stmt sqlsplit.Statement, sr StatementResult, execErr error,
) {
	if opts.QueryLog == nil {
		return
	}

	entry := querylog.NewEntry(opts.Connection, opts.LogType, stmt)
	entry.Duration = sr.Duration
	entry.Rows = sr.RowsAffected
	if sr.Columns != nil {
		entry.Rows = int64(len(sr.Rows))
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}

	// The statement has been executed, so it is logged even if the script is being canceled.
	if err := opts.QueryLog.Push(context.WithoutCancel(ctx), entry); err != nil {
		db.logger.Warnw("Can't write query log", logging.Error(err))
	}
}

// changesSchema reports whether a statement selects another default schema or drops one.
func changesSchema(text string) bool {
	keywords := sqlsplit.Keywords(text, 2)
	if len(keywords) == 0 {
		return false
	}

	switch keywords[0] {
	case "USE":
		return true
	case "DROP":
		return len(keywords) > 1 && (keywords[1] == "DATABASE" || keywords[1] == "SCHEMA")
	default:
		return false
	}
}
