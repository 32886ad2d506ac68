package sqlsplit

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnterminatedQuote is returned if a quoted string or identifier isn't closed before the end of input.
	ErrUnterminatedQuote = stderrors.New("unterminated quoted string")

	// ErrUnterminatedComment is returned if a block comment isn't closed before the end of input.
	ErrUnterminatedComment = stderrors.New("unterminated block comment")

	// ErrMissingDelimiter is returned if a DELIMITER directive isn't followed by a delimiter on the same line.
	ErrMissingDelimiter = stderrors.New("DELIMITER must be followed by a delimiter string")
)

// SplitError describes where a script could not be split.
// Use errors.Is with one of the Err* variables to find out why.
type SplitError struct {
	Err error

	// Offset is the byte offset of the offending quote, comment or directive.
	Offset int

	// Line and Column are the 1-based position of Offset. Column counts bytes.
	Line   int
	Column int
}

// Error implements the error interface.
func (e *SplitError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d", e.Err, e.Line, e.Column)
}

// Unwrap returns the underlying Err* variable.
func (e *SplitError) Unwrap() error {
	return e.Err
}

func newSplitError(err error, src string, offset int) error {
	line := strings.Count(src[:offset], "\n") + 1
	column := offset - strings.LastIndexByte(src[:offset], '\n')

	return errors.WithStack(&SplitError{Err: err, Offset: offset, Line: line, Column: column})
}
