package querylog

import "regexp"

const quoted = `(?:'(?:[^'\\]|\\.|'')*'|"(?:[^"\\]|\\.|"")*")`

const masked = `'***'`

var passwordPatterns = []*regexp.Regexp{
	// CREATE USER, ALTER USER and GRANT ... IDENTIFIED [WITH plugin] BY|AS '...'
	regexp.MustCompile(`(?is)(\bIDENTIFIED\s+(?:WITH\s+\S+\s+)?(?:BY|AS)\s+(?:PASSWORD\s+)?)` + quoted),
	// PASSWORD('...'), OLD_PASSWORD('...')
	regexp.MustCompile(`(?is)(\bPASSWORD\s*\(\s*)` + quoted),
	// SET PASSWORD [FOR user] = '...'
	regexp.MustCompile(`(?is)(\bSET\s+PASSWORD\b[^=]*=\s*)` + quoted),
}

// Mask replaces password literals in sql with '***'.
func Mask(sql string) string {
	for _, re := range passwordPatterns {
		sql = re.ReplaceAllString(sql, "${1}"+masked)
	}

	return sql
}
