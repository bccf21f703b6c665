// Package kvquery implements the query evaluator: parameter parsing,
// index/scan cursor classification, the merge-join coordinator, and
// result materialization, against an abstract record store.
package kvquery

import (
	"fmt"
	"time"
)

// Value represents any value that can live in a record, a predicate, or
// a primary key. Like the teacher's datalog.Value, we use interface{}
// with a small closed set of direct Go types rather than a class
// hierarchy.
type Value interface{}

// Valid dynamic types for Value:
//   - nil (a stored null; see Absent for a missing value)
//   - string
//   - int64
//   - float64
//   - bool
//   - time.Time
//   - []byte
//   - []Value      (a JSON-array-shaped list)
//   - map[string]Value (a nested document)

// Record is a structured document addressable by dotted path.
type Record = map[string]Value

// Key is the dynamic type of a primary key or index key value.
type Key = Value

// Absent is the sentinel returned by path resolution when a segment is
// missing or non-traversable. It is distinct from a stored nil so that
// "value is present and null" can still be told apart from "value is
// absent" if a caller needs to (CompareValues treats both as sorting
// last, per spec).
type absentType struct{}

// Absent is the singleton absent sentinel.
var Absent Value = absentType{}

// IsAbsent reports whether v is the absent sentinel.
func IsAbsent(v Value) bool {
	_, ok := v.(absentType)
	return ok
}

// Helper constructors, kept for parity with the teacher's Value helpers.
func String(s string) Value  { return s }
func Int(i int64) Value      { return i }
func Float(f float64) Value  { return f }
func Bool(b bool) Value      { return b }
func Time(t time.Time) Value { return t }
func Bytes(b []byte) Value   { return b }

// FormatKeyString renders any key Value as the string form a lookup
// result's map key uses — every leaf type stringifies, unlike
// comparison which must keep types apart.
func FormatKeyString(v Value) string {
	if IsAbsent(v) || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
