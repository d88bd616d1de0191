package stream

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JoinKey normalises a join column value so that the integer 101, the float 101.0, json.Number("101")
// and the string "101" all compare equal. Integral numbers are rendered in base 10 without exponent or
// padding and strings are trimmed. It returns ok = false for nil, empty and NaN values which never match.
func JoinKey(v interface{}) (key string, ok bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		key = strings.TrimSpace(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			key = strconv.FormatInt(i, 10)
		} else if f, err := x.Float64(); err == nil {
			return floatKey(f)
		} else {
			key = x.String()
		}
	case int:
		key = strconv.FormatInt(int64(x), 10)
	case int32:
		key = strconv.FormatInt(int64(x), 10)
	case int64:
		key = strconv.FormatInt(x, 10)
	case uint64:
		key = strconv.FormatUint(x, 10)
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	case []byte:
		key = strings.TrimSpace(string(x))
	default:
		key = fmt.Sprint(x)
	}
	return key, key != ""
}

func floatKey(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// NormaliseValue converts values decoded with json.Decoder.UseNumber into native Go types for sinks.
// json.Number becomes int64 when it is integral, else float64. Other values are returned unchanged.
func NormaliseValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// CoerceInt returns v as an int64 when it can be read as an integer, otherwise it returns v unchanged.
// Strings such as "501" are parsed, non-numeric strings are kept.
func CoerceInt(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil && f == math.Trunc(f) {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i
		}
	case float64:
		if x == math.Trunc(x) {
			return int64(x)
		}
	case int:
		return int64(x)
	}
	return v
}
