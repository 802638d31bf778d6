package statement

import (
	"fmt"
	"strconv"
	"time"
)

// Strings converts args to their literal text, one entry per argument.
// Strings and byte slices are passed through unquoted, times are rendered
// as Unix milliseconds. Quoting is the caller's concern.
func Strings(args ...any) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			out[i] = v
		case []byte:
			out[i] = string(v)
		case int:
			out[i] = strconv.Itoa(v)
		case int64:
			out[i] = strconv.FormatInt(v, 10)
		case bool:
			out[i] = strconv.FormatBool(v)
		case time.Time:
			out[i] = strconv.FormatInt(v.UnixMilli(), 10)
		case nil:
			out[i] = "null"
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
