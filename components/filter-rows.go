package components

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// RowFilter keeps the rows for which a JSON Logic rule evaluates to true.
type RowFilter struct {
	log  logger.Logger
	rule string
}

// NewRowFilter validates the JSON Logic rule and returns a filter that applies it.
func NewRowFilter(log logger.Logger, rule string) (*RowFilter, error) {
	if !jsonlogic.IsValid(strings.NewReader(rule)) {
		return nil, fmt.Errorf("invalid JSON Logic rule: %v", rule)
	}
	return &RowFilter{log: log, rule: rule}, nil
}

// Filter returns the rows matching the rule in their input order.
func (f *RowFilter) Filter(rows []stream.Record) ([]stream.Record, error) {
	var result bytes.Buffer
	retval := make([]stream.Record, 0, len(rows))
	for _, r := range rows {
		result.Reset()
		if err := applyJsonLogic(r, f.rule, &result); err != nil {
			return nil, err
		}
		if strings.TrimSpace(result.String()) == "true" {
			retval = append(retval, r)
		}
	}
	f.log.Info("row filter kept ", len(retval), " of ", len(rows), " rows")
	return retval, nil
}

// applyJsonLogic marshals the record to JSON and applies rule, writing the result to result.
func applyJsonLogic(data stream.Record, rule string, result *bytes.Buffer) error {
	jsonData, err := data.GetJson()
	if err != nil {
		return fmt.Errorf("error marshalling data before applying JSON logic: %w", err)
	}
	err = jsonlogic.Apply(strings.NewReader(rule), strings.NewReader(jsonData), result)
	if err != nil {
		return fmt.Errorf("error applying JSON logic: %w", err)
	}
	return nil
}
