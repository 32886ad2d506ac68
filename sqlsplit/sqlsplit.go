// Package sqlsplit splits SQL scripts into individual statements the way the mysql command line client does,
// including support for the DELIMITER directive.
//
// Splitting is a single pass over the input. Quoted strings (single, double and backtick quoted) and comments
// (--, # and /* */) are never split, regardless of what the active delimiter looks like.
// Comments are kept verbatim in the statement text.
package sqlsplit

import (
	"strings"
)

// DefaultDelimiter is the statement delimiter in effect until a DELIMITER directive changes it.
const DefaultDelimiter = ";"

// Statement is a single statement of a SQL script.
type Statement struct {
	// Text is the statement without surrounding whitespace and without its terminating delimiter.
	Text string `json:"text" yaml:"text"`

	// Delimiter is the delimiter that was active when the statement was terminated.
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// StartOffset and EndOffset are byte offsets into the script, so that script[StartOffset:EndOffset] == Text.
	StartOffset int `json:"start_offset" yaml:"start_offset"`
	EndOffset   int `json:"end_offset" yaml:"end_offset"`
}

// Split splits sql into its statements in source order.
//
// If the script can't be tokenized, e.g. because of an unterminated quoted string or block comment,
// Split returns a *SplitError and no statements at all.
func Split(sql string, options ...Option) ([]Statement, error) {
	var statements []Statement

	s := NewScanner(sql, options...)
	for s.Scan() {
		statements = append(statements, s.Statement())
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return statements, nil
}

// Join is the reverse of Split. It writes all statements with a Writer,
// so that splitting the result again yields the same texts and delimiters.
func Join(statements []Statement) string {
	var b strings.Builder

	w := NewWriter(&b)
	for _, stmt := range statements {
		_ = w.Write(stmt)
	}
	_ = w.Close()

	return b.String()
}

// Keyword returns the first keyword of a statement in upper case, skipping leading whitespace and comments.
// It returns an empty string if the statement doesn't start with a word.
func Keyword(text string) string {
	if keywords := Keywords(text, 1); len(keywords) > 0 {
		return keywords[0]
	}

	return ""
}

// Keywords returns up to n leading words of a statement in upper case.
// Whitespace and comments between the words are skipped. It stops at the first byte which doesn't start a word.
func Keywords(text string, n int) []string {
	var keywords []string

	for i := 0; len(keywords) < n; {
		i = skipBlank(text, i)

		j := i
		for j < len(text) && isWordByte(text[j]) {
			j++
		}

		if j == i {
			break
		}

		keywords = append(keywords, strings.ToUpper(text[i:j]))
		i = j
	}

	return keywords
}

// skipBlank returns the position of the first byte at or after i which is neither whitespace nor
// part of a comment. Unterminated block comments are skipped up to the end of s.
func skipBlank(s string, i int) int {
	for i < len(s) {
		switch {
		case isSpace(s[i]):
			i++
		case isLineComment(s, i):
			i = lineCommentEnd(s, i)
		case isBlockComment(s, i):
			end, ok := blockCommentEnd(s, i)
			if !ok {
				return len(s)
			}
			i = end
		default:
			return i
		}
	}

	return i
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	default:
		return false
	}
}

func isWordByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func isLineComment(s string, i int) bool {
	return s[i] == '#' || strings.HasPrefix(s[i:], "--")
}

func isBlockComment(s string, i int) bool {
	return strings.HasPrefix(s[i:], "/*")
}

// lineCommentEnd returns the position of the newline terminating the line comment starting at i,
// or len(s) if the comment runs until the end of input.
func lineCommentEnd(s string, i int) int {
	if n := strings.IndexByte(s[i:], '\n'); n >= 0 {
		return i + n
	}

	return len(s)
}

// blockCommentEnd returns the position just after the */ closing the block comment starting at i.
func blockCommentEnd(s string, i int) (int, bool) {
	if n := strings.Index(s[i+2:], "*/"); n >= 0 {
		return i + 2 + n + 2, true
	}

	return len(s), false
}

func trimRightSpace(s string) string {
	i := len(s)
	for i > 0 && isSpace(s[i-1]) {
		i--
	}

	return s[:i]
}
