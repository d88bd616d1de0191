package rdbms

import (
	"fmt"
	"reflect"
	"strings"
)

// PlaceholderFunc returns the driver placeholder for the nth (1-based) bind variable.
type PlaceholderFunc func(n int) string

func QuestionMarkPlaceholder(n int) string {
	return "?"
}

func DollarPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// BindParams rewrites @name placeholders in query into driver placeholders and returns the matching
// bind values. Slice values expand into a comma separated list of placeholders, or NULL when empty,
// so they can be used with IN (...). Text inside quotes is left alone. Byte slices are scalars.
func BindParams(query string, params []Param, placeholder PlaceholderFunc) (string, []interface{}, error) {
	byName := make(map[string]interface{}, len(params))
	for _, p := range params {
		byName[p.Name] = p.Value
	}
	var b strings.Builder
	args := make([]interface{}, 0, len(params))
	var quote rune
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 { // if we're inside a quoted string or identifier...
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
			continue
		}
		if r == '\'' || r == '"' {
			quote = r
			b.WriteRune(r)
			continue
		}
		if r != '@' || i+1 >= len(runes) || !isIdentStart(runes[i+1]) {
			b.WriteRune(r)
			continue
		}
		j := i + 1
		for j < len(runes) && isIdentPart(runes[j]) {
			j++
		}
		name := string(runes[i+1 : j])
		v, ok := byName[name]
		if !ok {
			return "", nil, fmt.Errorf("no value supplied for query parameter @%v", name)
		}
		if rv := reflect.ValueOf(v); v != nil && rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			if rv.Len() == 0 {
				b.WriteString("NULL")
			}
			for k := 0; k < rv.Len(); k++ {
				if k > 0 {
					b.WriteString(", ")
				}
				args = append(args, rv.Index(k).Interface())
				b.WriteString(placeholder(len(args)))
			}
		} else {
			args = append(args, v)
			b.WriteString(placeholder(len(args)))
		}
		i = j - 1
	}
	return b.String(), args, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
