package charset

import "fmt"

// Stringify returns the canonical textual form of v. Strings pass through,
// byte slices are reinterpreted as text, and everything else is formatted
// with fmt (which honours fmt.Stringer and error).
func Stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}
