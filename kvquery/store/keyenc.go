package store

import (
	"bytes"

	"github.com/kvquery/kvquery"
)

// separator is placed between an index entry's encoded value component
// and its trailing primary-key component, so a range scan bounded to a
// given value prefix never spills into the next value's primary keys.
// For variable-length (string) values it sorts before every other byte,
// so "a"+separator orders ahead of "ab". Numeric, bool and time values
// encode to a fixed width whose bytes may themselves be 0x00, so
// SplitIndexEntryKey finds their separator by position, not by search.
const separator = 0x00

// EncodeIndexEntryKey builds an index cursor's composite on-disk key:
// the encoded index value, a separator, then the encoded primary key.
// Entries with the same value sort together, ordered by primary key —
// this is what lets OpenIndexCursor surface primary keys in ascending
// order even though the index itself is keyed by value.
func EncodeIndexEntryKey(value kvquery.Value, primaryKey []byte) []byte {
	return concatBytes([]byte{byte(kvquery.TypeOf(value))}, kvquery.EncodeValue(value), []byte{separator}, primaryKey)
}

// SplitIndexEntryKey recovers the primary-key suffix of a composite
// index entry key built by EncodeIndexEntryKey.
func SplitIndexEntryKey(key []byte) (primaryKey []byte) {
	if len(key) == 0 {
		return nil
	}
	var idx int
	switch kvquery.ValueType(key[0]) {
	case kvquery.TypeNull:
		idx = 1
	case kvquery.TypeBool:
		idx = 2
	case kvquery.TypeInt, kvquery.TypeFloat, kvquery.TypeTime:
		idx = 9
	default:
		idx = bytes.IndexByte(key[1:], separator) + 1
	}
	if idx < 1 || idx >= len(key) || key[idx] != separator {
		return nil
	}
	return key[idx+1:]
}

// EncodePrimaryKey builds a primary-key cursor's on-disk key: a
// type-tag byte followed by the value's order-preserving encoding,
// adapted from the teacher's BinaryKeyEncoder.EncodeKey (which prefixes
// every index key with a 1-byte index-type tag the same way). The
// cursor classifier reuses it to encode bare range-bound values for
// index scans too, since an index entry's composite key always starts
// with exactly this byte form.
func EncodePrimaryKey(value kvquery.Value) []byte {
	return concatBytes([]byte{byte(kvquery.TypeOf(value))}, kvquery.EncodeValue(value))
}

// IndexValuePrefix builds the byte prefix that exactly scopes an index
// equality match: a value's encoded form followed by the separator,
// before any primary-key suffix. Used as the lower bound of an
// equality range; PrefixUpperBound(this) is its exclusive upper bound.
func IndexValuePrefix(value kvquery.Value) []byte {
	return concatBytes(EncodePrimaryKey(value), []byte{separator})
}

// PrefixUpperBound returns the smallest key strictly greater than every
// key starting with prefix: prefix with its last non-0xFF byte
// incremented and the trailing 0xFF bytes dropped. If every byte is
// 0xFF it returns prefix+0x00, which is above prefix itself but not
// above longer keys that start with it. Adapted directly from the
// teacher's BinaryKeyEncoder.EncodePrefixRange.
func PrefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)

	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return append(end, 0x00)
}
