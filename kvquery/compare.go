package kvquery

import (
	"fmt"
	"strings"
	"time"
)

// typeRank orders mismatched types for a total (if arbitrary) ordering,
// so the comparator never panics on, say, a string compared against an
// int. Absent sorts last, per spec; everything else keeps its natural
// within-type order and falls back to this rank across types.
func typeRank(v Value) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, int, float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	case []byte:
		return 5
	default:
		return 6
	}
}

// CompareValues compares two values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Numbers compare numerically (int64/int/float64 unified), strings
// lexicographically, bools false<true, times chronologically. The
// absent sentinel and untyped nil both sort last. Mismatched types fall
// back to a stable type-rank ordering, then to string-form comparison,
// mirroring the teacher's CompareValues fallback for unrelated types.
func CompareValues(left, right interface{}) int {
	leftAbsent := left == nil || IsAbsent(left)
	rightAbsent := right == nil || IsAbsent(right)
	if leftAbsent && rightAbsent {
		return 0
	}
	if leftAbsent {
		return 1
	}
	if rightAbsent {
		return -1
	}

	switch l := left.(type) {
	case int:
		return compareNumeric(int64(l), right)
	case int64:
		return compareNumeric(l, right)
	case float64:
		return compareFloat(l, right)
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
	case bool:
		if r, ok := right.(bool); ok {
			switch {
			case l == r:
				return 0
			case !l:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if r, ok := right.(time.Time); ok {
			switch {
			case l.Before(r):
				return -1
			case l.After(r):
				return 1
			default:
				return 0
			}
		}
	}

	// Mismatched or unrecognized types: order by type rank, then string form.
	if lr, rr := typeRank(left), typeRank(right); lr != rr {
		if lr < rr {
			return -1
		}
		return 1
	}
	return strings.Compare(stringValue(left), stringValue(right))
}

// compareNumeric compares an int64 with another numeric value.
func compareNumeric(left int64, right interface{}) int {
	switch r := right.(type) {
	case int:
		return compareInt64s(left, int64(r))
	case int64:
		return compareInt64s(left, r)
	case float64:
		return compareFloat(float64(left), right)
	}
	return typeMismatch(left, right)
}

// compareFloat compares a float64 with another numeric value.
func compareFloat(left float64, right interface{}) int {
	switch r := right.(type) {
	case int:
		return compareFloats(left, float64(r))
	case int64:
		return compareFloats(left, float64(r))
	case float64:
		return compareFloats(left, r)
	}
	return typeMismatch(left, right)
}

func typeMismatch(left, right interface{}) int {
	if lr, rr := typeRank(left), typeRank(right); lr != rr {
		if lr < rr {
			return -1
		}
		return 1
	}
	return strings.Compare(stringValue(left), stringValue(right))
}

func compareInt64s(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ValuesEqual reports whether a and b are equal under CompareValues.
func ValuesEqual(a, b interface{}) bool {
	return CompareValues(a, b) == 0
}

// stringValue converts any value to a string for comparison/display.
func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
