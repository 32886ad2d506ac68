// Package querylog keeps a history of executed SQL statements.
//
// Entries are masked before they are stored, so that passwords from statements such as
// CREATE USER or SET PASSWORD never end up in the log.
package querylog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mxs-workbench/sqlscript/sqlsplit"
)

// Type distinguishes statements typed by a user from statements issued on behalf of an action.
type Type string

const (
	User   Type = "user"
	Action Type = "action"
)

// Entry is a single executed statement.
type Entry struct {
	ID         uuid.UUID     `json:"id" yaml:"id"`
	Time       time.Time     `json:"time" yaml:"time"`
	Connection string        `json:"connection,omitempty" yaml:"connection,omitempty"`
	SQL        string        `json:"sql" yaml:"sql"`
	Delimiter  string        `json:"delimiter" yaml:"delimiter"`
	Type       Type          `json:"type" yaml:"type"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Rows       int64         `json:"rows" yaml:"rows"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewEntry returns an Entry with a fresh ID for stmt, whose text is masked.
func NewEntry(connection string, typ Type, stmt sqlsplit.Statement) Entry {
	return Entry{
		ID:         uuid.New(),
		Time:       time.Now(),
		Connection: connection,
		SQL:        Mask(stmt.Text),
		Delimiter:  stmt.Delimiter,
		Type:       typ,
	}
}

// Store persists entries.
type Store interface {
	// Push adds e as the most recent entry.
	Push(ctx context.Context, e Entry) error

	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
}
