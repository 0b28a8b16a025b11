package command

import "strconv"

// Args holds resolved parameter values in declaration order. Absent values
// are nil.
type Args []any

// Value returns the value at i or nil when out of range.
func (a Args) Value(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// Lookup returns the string at i and whether it was present.
func (a Args) Lookup(i int) (string, bool) {
	s, ok := a.Value(i).(string)
	return s, ok
}

// String returns the string at i or "".
func (a Args) String(i int) string {
	s, _ := a.Lookup(i)
	return s
}

// Strings returns the []string at i or nil.
func (a Args) Strings(i int) []string {
	s, _ := a.Value(i).([]string)
	return s
}

// Values returns the []any at i or nil.
func (a Args) Values(i int) []any {
	v, _ := a.Value(i).([]any)
	return v
}

// Int64 returns the value at i as int64 when it is an integer or a string
// holding one.
func (a Args) Int64(i int) (int64, bool) {
	switch v := a.Value(i).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
