package rdbms

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/relloyd/deskpipe/stream"
)

// missingColumns returns the cols whose names are not keys of existing.
func missingColumns(existing map[string]ColumnType, cols []Column) []Column {
	retval := make([]Column, 0)
	seen := make(map[string]struct{})
	for _, c := range cols {
		if _, ok := existing[c.Name]; ok {
			continue
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		retval = append(retval, c)
	}
	return retval
}

// rowsForTable converts recs into rows of values ordered by the returned column names, coercing each
// value to the type of its table column in colTypes.
func rowsForTable(recs []stream.Record, colTypes map[string]ColumnType) ([]string, [][]interface{}, error) {
	names := stream.GetUnionKeys(recs)
	sort.Strings(names)
	rows := make([][]interface{}, 0, len(recs))
	for idx, r := range recs {
		row := make([]interface{}, len(names))
		for i, n := range names {
			t, ok := colTypes[n]
			if !ok {
				return nil, nil, errors.Errorf("column %v is missing from the target table", n)
			}
			v, err := CoerceValue(r.GetData(n), t)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %v column %v", idx, n)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return names, rows, nil
}
