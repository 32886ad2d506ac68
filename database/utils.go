package database

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// CantPerformQuery wraps the given error with the specified query that cannot be executed.
func CantPerformQuery(err error, q string) error {
	return errors.Wrapf(err, "can't perform %q", q)
}

// setSessionVariableIfExists sets the given MySQL/MariaDB system variable for the session of conn.
//
// NOTE: variable and value are written into the statement as they are,
// so they must never come from user input.
//
// An "Unknown system variable (1193)" error is dropped, as not every server flavor knows every variable.
func setSessionVariableIfExists(ctx context.Context, conn driver.Conn, variable, value string) error {
	stmt := fmt.Sprintf("SET SESSION %s=%s", variable, value)

	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return errors.Errorf("%T can't execute statements directly", conn)
	}

	if _, err := execer.ExecContext(ctx, stmt, nil); err != nil {
		if errors.Is(err, &mysql.MySQLError{Number: 1193}) {
			return nil
		}

		return CantPerformQuery(err, stmt)
	}

	return nil
}
