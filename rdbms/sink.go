//go:generate mockgen -package mocks -destination mocks/sink.go -source=sink.go

package rdbms

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/deskpipe/stream"
)

// Sink is a tabular destination that supports existence lookups and append with schema widening.
// SQL passed to Query and Exec uses @name placeholders which are bound from params.
type Sink interface {
	TableExists(ctx context.Context, id TableID) (bool, error)
	CreateTable(ctx context.Context, id TableID, cols []Column) error
	// EnsureColumns adds any of cols that are missing from the table. Existing columns are left alone.
	EnsureColumns(ctx context.Context, id TableID, cols []Column) error
	Query(ctx context.Context, sql string, params ...Param) ([]stream.Record, error)
	Exec(ctx context.Context, sql string, params ...Param) (int64, error)
	// LoadAppend appends recs to the table, widening it to fit new columns. It is all-or-nothing.
	LoadAppend(ctx context.Context, id TableID, recs []stream.Record) error
	Close()
}

type ColumnType string

const (
	ColumnTypeString    ColumnType = "STRING"
	ColumnTypeInt64     ColumnType = "INT64"
	ColumnTypeFloat64   ColumnType = "FLOAT64"
	ColumnTypeBool      ColumnType = "BOOL"
	ColumnTypeTimestamp ColumnType = "TIMESTAMP"
)

type Column struct {
	Name string
	Type ColumnType
}

// Param is a named query parameter. Value may be a scalar or a slice, which binds as a list.
type Param struct {
	Name  string
	Value interface{}
}

func NewParam(name string, value interface{}) Param {
	return Param{Name: name, Value: value}
}

// InferColumnType maps a Go value to the column type used to create it in a sink.
// Lists, maps and nil are stored as text.
func InferColumnType(v interface{}) ColumnType {
	switch stream.NormaliseValue(v).(type) {
	case int, int32, int64, uint32, uint64:
		return ColumnTypeInt64
	case float32, float64:
		return ColumnTypeFloat64
	case bool:
		return ColumnTypeBool
	case time.Time:
		return ColumnTypeTimestamp
	default:
		return ColumnTypeString
	}
}

// InferColumns returns the union of columns across recs in sorted order.
// The type of each column comes from its first non-nil value.
func InferColumns(recs []stream.Record) []Column {
	keys := stream.GetUnionKeys(recs)
	retval := make([]Column, 0, len(keys))
	for _, k := range keys {
		col := Column{Name: k, Type: ColumnTypeString}
		for _, r := range recs {
			if v := r.GetData(k); v != nil {
				col.Type = InferColumnType(v)
				break
			}
		}
		retval = append(retval, col)
	}
	return retval
}

// CoerceValue converts v for storage in a column of type t.
// Lists and maps become JSON text. It returns an error when v cannot be represented in t.
func CoerceValue(v interface{}, t ColumnType) (interface{}, error) {
	v = stream.NormaliseValue(v)
	if v == nil {
		return nil, nil
	}
	switch t {
	case ColumnTypeString:
		return toText(v)
	case ColumnTypeInt64:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return i, nil
			}
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case ColumnTypeFloat64:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
	case ColumnTypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	case ColumnTypeTimestamp:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			if ts, err := time.Parse(time.RFC3339Nano, x); err == nil {
				return ts, nil
			}
		}
	}
	return nil, fmt.Errorf("unable to store value %v (%T) in column of type %v", v, v, t)
}

func toText(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool, int, int32:
		return fmt.Sprint(x), nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal value to JSON text: %w", err)
		}
		return string(b), nil
	}
	return fmt.Sprint(v), nil
}
