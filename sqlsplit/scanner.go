package sqlsplit

import (
	"strings"
)

// Option configures a Scanner.
type Option func(*Scanner)

// WithDelimiter sets the delimiter which is active at the beginning of the script.
// An empty delimiter is ignored.
func WithDelimiter(delimiter string) Option {
	return func(s *Scanner) {
		if delimiter != "" {
			s.delimiter = delimiter
		}
	}
}

// WithoutBackslashEscapes disables backslash escapes in quoted strings,
// like the NO_BACKSLASH_ESCAPES SQL mode does.
func WithoutBackslashEscapes() Option {
	return func(s *Scanner) { s.noBackslashEscapes = true }
}

// Scanner lazily reads the statements of a SQL script one at a time.
//
// Successive calls to Scan step through the statements, Statement returns the current one.
// Scanning stops at the end of the script or on the first error, which is then returned by Err.
// A Scanner is not safe for concurrent use, but any number of Scanners may read the same script.
//
// Example usage:
//
//	s := sqlsplit.NewScanner(script)
//	for s.Scan() {
//		fmt.Println(s.Statement().Text)
//	}
//	if err := s.Err(); err != nil {
//		log.Fatal(err)
//	}
type Scanner struct {
	src                string
	pos                int
	delimiter          string
	noBackslashEscapes bool
	stmt               Statement
	err                error
}

// NewScanner returns a Scanner reading from sql.
func NewScanner(sql string, options ...Option) *Scanner {
	s := &Scanner{src: sql, delimiter: DefaultDelimiter}
	for _, option := range options {
		option(s)
	}

	return s
}

// Scan advances to the next statement, which is then available through Statement.
// It returns false at the end of the script or if an error occurred.
func (s *Scanner) Scan() bool {
	for s.err == nil && s.pos < len(s.src) {
		start := s.pos
		for start < len(s.src) && isSpace(s.src[start]) {
			start++
		}

		first, err := s.skipBlank(start)
		if err != nil {
			s.fail(err)
			return false
		}

		if first == len(s.src) {
			// Only whitespace and comments left.
			s.pos = first
			return false
		}

		if next, ok, err := s.directive(first); err != nil {
			s.fail(err)
			return false
		} else if ok {
			s.pos = next
			continue
		}

		if strings.HasPrefix(s.src[first:], s.delimiter) {
			// Empty statement.
			s.pos = first + len(s.delimiter)
			continue
		}

		end, next, err := s.scanStatement(first)
		if err != nil {
			s.fail(err)
			return false
		}

		text := trimRightSpace(s.src[start:end])
		s.stmt = Statement{
			Text:        text,
			Delimiter:   s.delimiter,
			StartOffset: start,
			EndOffset:   start + len(text),
		}
		s.pos = next

		return true
	}

	return false
}

// Statement returns the statement found by the most recent call to Scan.
func (s *Scanner) Statement() Statement {
	return s.stmt
}

// Err returns the error that stopped the Scanner, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Delimiter returns the currently active delimiter.
func (s *Scanner) Delimiter() string {
	return s.delimiter
}

func (s *Scanner) fail(err error) {
	s.err = err
	s.stmt = Statement{}
	s.pos = len(s.src)
}

// skipBlank is like the package level skipBlank, but fails on unterminated block comments.
func (s *Scanner) skipBlank(i int) (int, error) {
	for i < len(s.src) {
		switch {
		case isSpace(s.src[i]):
			i++
		case isLineComment(s.src, i):
			i = lineCommentEnd(s.src, i)
		case isBlockComment(s.src, i):
			end, ok := blockCommentEnd(s.src, i)
			if !ok {
				return 0, newSplitError(ErrUnterminatedComment, s.src, i)
			}
			i = end
		default:
			return i, nil
		}
	}

	return i, nil
}

// directive checks whether a DELIMITER directive starts at i and, if so, activates its delimiter and
// returns the position just after it.
func (s *Scanner) directive(i int) (int, bool, error) {
	const keyword = "DELIMITER"

	if len(s.src)-i < len(keyword) || !strings.EqualFold(s.src[i:i+len(keyword)], keyword) {
		return 0, false, nil
	}

	j := i + len(keyword)
	if j < len(s.src) && !isSpace(s.src[j]) {
		// Some other word like DELIMITERS or DELIMITER;
		return 0, false, nil
	}

	for j < len(s.src) && (s.src[j] == ' ' || s.src[j] == '\t') {
		j++
	}

	k := j
	for k < len(s.src) && !isSpace(s.src[k]) {
		k++
	}

	if k == j {
		return 0, false, newSplitError(ErrMissingDelimiter, s.src, i)
	}

	s.delimiter = s.src[j:k]

	return k, true, nil
}

// scanStatement scans the statement starting at i up to the active delimiter.
// It returns the position of the delimiter and the position just after it.
// Both are len(s.src) for a statement which isn't terminated.
func (s *Scanner) scanStatement(i int) (int, int, error) {
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end, err := s.quoteEnd(i)
			if err != nil {
				return 0, 0, err
			}
			i = end
		case isLineComment(s.src, i):
			i = lineCommentEnd(s.src, i)
		case isBlockComment(s.src, i):
			end, ok := blockCommentEnd(s.src, i)
			if !ok {
				return 0, 0, newSplitError(ErrUnterminatedComment, s.src, i)
			}
			i = end
		case strings.HasPrefix(s.src[i:], s.delimiter):
			return i, i + len(s.delimiter), nil
		default:
			i++
		}
	}

	return len(s.src), len(s.src), nil
}

// quoteEnd returns the position just after the quoted region starting at i.
// Doubled quote characters don't terminate the region, neither do backslash-escaped ones
// in single and double quoted strings.
func (s *Scanner) quoteEnd(i int) (int, error) {
	q := s.src[i]

	for j := i + 1; j < len(s.src); j++ {
		switch c := s.src[j]; {
		case c == '\\' && q != '`' && !s.noBackslashEscapes:
			j++
		case c == q:
			if j+1 < len(s.src) && s.src[j+1] == q {
				j++
				continue
			}

			return j + 1, nil
		}
	}

	return 0, newSplitError(ErrUnterminatedQuote, s.src, i)
}
