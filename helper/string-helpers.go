package helper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/deskpipe/constants"
)

// CsvToStringSliceTrimSpaces converts a string of the form, 'f1, f2 ,f3' into a slice of values without spaces.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// GetTrueFalseStringAsBool trims spaces from s and checks if it can regexp (case insensitive) match "true".
func GetTrueFalseStringAsBool(s string) bool {
	re := regexp.MustCompile("(?i)^true$")
	return re.MatchString(strings.TrimSpace(s))
}

// InterfaceToString converts a slice of database values into strings for printing.
// Integral floats are printed without a decimal point; times use the window format.
func InterfaceToString(src []interface{}) []string {
	retval := make([]string, len(src))
	for i, v := range src {
		switch x := v.(type) {
		case nil:
			retval[i] = ""
		case float64:
			if x == float64(int64(x)) { // if we can treat this as an integer...
				retval[i] = strconv.FormatInt(int64(x), 10)
			} else {
				retval[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case []uint8:
			retval[i] = string(x)
		case time.Time:
			retval[i] = x.Format(constants.TimeFormatWindow)
		case json.Number:
			retval[i] = x.String()
		default:
			retval[i] = fmt.Sprint(v)
		}
	}
	return retval
}
