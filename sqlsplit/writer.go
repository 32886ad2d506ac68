package sqlsplit

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Writer writes statements as a script which splits into the same statements again.
// DELIMITER directives are inserted whenever the delimiter changes.
// Call Close after the last statement to switch back to the default delimiter.
type Writer struct {
	w         io.Writer
	delimiter string
}

// NewWriter returns a Writer writing to w, starting with the default delimiter.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, delimiter: DefaultDelimiter}
}

// Write writes stmt terminated by its delimiter and a newline.
func (w *Writer) Write(stmt Statement) error {
	var b strings.Builder

	d := stmt.Delimiter
	if d == "" {
		d = DefaultDelimiter
	}

	if d != w.delimiter {
		b.WriteString("DELIMITER " + d + "\n")
		w.delimiter = d
	}

	b.WriteString(stmt.Text)
	if hidesDelimiter(stmt.Text, d) {
		b.WriteByte('\n')
	}
	b.WriteString(d)
	b.WriteByte('\n')

	_, err := io.WriteString(w.w, b.String())

	return errors.WithStack(err)
}

// Close writes a DELIMITER directive restoring the default delimiter if another one is active.
// It doesn't close the underlying io.Writer.
func (w *Writer) Close() error {
	if w.delimiter == DefaultDelimiter {
		return nil
	}

	w.delimiter = DefaultDelimiter
	_, err := io.WriteString(w.w, "DELIMITER "+DefaultDelimiter+"\n")

	return errors.WithStack(err)
}

// hidesDelimiter reports whether d written right after text would end up in a comment,
// either because the last line of text has a line comment or because both form a comment start.
func hidesDelimiter(text, d string) bool {
	lastLine := text[strings.LastIndexByte(text, '\n')+1:]
	if strings.Contains(lastLine, "--") || strings.Contains(lastLine, "#") {
		return true
	}

	if text == "" {
		return false
	}

	switch text[len(text)-1:] + d[:1] {
	case "--", "/*":
		return true
	default:
		return false
	}
}
