package stream

import (
	"strings"

	"github.com/relloyd/deskpipe/constants"
)

// SanitiseColumnName makes s safe to use as a sink column identifier.
// Every rune outside [0-9A-Za-z_] becomes an underscore, a leading digit gets an underscore prefix and
// the result is cut to constants.ColumnNameMaxLen bytes. Applying it twice gives the same result.
func SanitiseColumnName(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if isColumnRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	retval := b.String()
	if retval != "" && retval[0] >= '0' && retval[0] <= '9' {
		retval = "_" + retval
	}
	if len(retval) > constants.ColumnNameMaxLen {
		retval = retval[:constants.ColumnNameMaxLen]
	}
	return retval
}

func isColumnRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '_'
}
