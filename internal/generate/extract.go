package generate

import (
	"errors"
	"strings"
)

const (
	sqlOpenMarker  = "<SQL>"
	sqlCloseMarker = "</SQL>"
)

var ErrNoSQLMarker = errors.New("model reply contains no <SQL></SQL> block")

// ExtractSQL pulls the first marked SQL block out of a model reply and
// normalizes its whitespace. Text outside the markers is ignored.
func ExtractSQL(reply string) (string, error) {
	open := strings.Index(reply, sqlOpenMarker)
	if open < 0 {
		return "", ErrNoSQLMarker
	}
	rest := reply[open+len(sqlOpenMarker):]
	end := strings.Index(rest, sqlCloseMarker)
	if end < 0 {
		return "", ErrNoSQLMarker
	}
	sql := NormalizeWhitespace(rest[:end])
	if sql == "" {
		return "", ErrNoSQLMarker
	}
	return sql, nil
}

// NormalizeWhitespace collapses every whitespace run to a single space, so
// multi-line model output becomes one canonical line. Applying it twice is a
// no-op.
func NormalizeWhitespace(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
