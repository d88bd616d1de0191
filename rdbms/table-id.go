package rdbms

import (
	"fmt"
	"strings"
)

// TableID is a three-part table address: project.dataset.table.
// For Snowflake and Postgres the parts are database.schema.table.
type TableID struct {
	Project string `errorTxt:"<project>.<dataset>.<table>" mandatory:"yes"`
	Dataset string `errorTxt:"<project>.<dataset>.<table>" mandatory:"yes"`
	Table   string `errorTxt:"<project>.<dataset>.<table>" mandatory:"yes"`
}

// ParseTableID parses "project.dataset.table". Parts may be double quoted.
func ParseTableID(s string) (TableID, error) {
	parts := splitIdentifier(strings.TrimSpace(s))
	if len(parts) != 3 {
		return TableID{}, fmt.Errorf("table %q must be of the form <project>.<dataset>.<table>", s)
	}
	for _, p := range parts {
		if p == "" {
			return TableID{}, fmt.Errorf("table %q has an empty part", s)
		}
	}
	return TableID{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}

// splitIdentifier splits on dots that are outside double quotes and strips the quotes.
func splitIdentifier(s string) []string {
	retval := make([]string, 0, 3)
	var b strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '.' && !inQuote:
			retval = append(retval, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	return append(retval, b.String())
}

func (t TableID) String() string {
	return fmt.Sprintf("%v.%v.%v", t.Project, t.Dataset, t.Table)
}

// Quoted returns the fully qualified, double quoted identifier.
func (t TableID) Quoted() string {
	return fmt.Sprintf("%v.%v.%v", QuoteIdentifier(t.Project), QuoteIdentifier(t.Dataset), QuoteIdentifier(t.Table))
}

// QuoteIdentifier double quotes s, escaping embedded quotes.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
