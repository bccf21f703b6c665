package kvquery

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ValueType tags the wire encoding of a Value, one byte per key/value.
type ValueType byte

const (
	TypeNull ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeBytes
)

// TypeOf returns the wire type of v.
func TypeOf(v Value) ValueType {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case int, int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTime
	case []byte:
		return TypeBytes
	default:
		panic(fmt.Sprintf("kvquery: unencodable key value type: %T", v))
	}
}

// EncodeValue serializes v to an order-preserving byte form: bytes
// produced from values of the same ValueType compare, byte-for-byte, in
// the same order CompareValues would report for two values of that
// type. Integers and floats flip their sign bit so that negative values
// sort before positive ones under plain []byte comparison — the
// teacher's ValueBytes encodes the same eight bytes but skips this flip
// because its integers (entity/tx counters) are never negative; this
// store's primary/index keys can be.
func EncodeValue(v Value) []byte {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []byte(val)
	case int:
		return encodeInt64(int64(val))
	case int64:
		return encodeInt64(val)
	case float64:
		return encodeFloat64(val)
	case bool:
		if val {
			return []byte{1}
		}
		return []byte{0}
	case time.Time:
		return encodeInt64(val.UnixNano())
	case []byte:
		return val
	default:
		panic(fmt.Sprintf("kvquery: cannot encode value type: %T", v))
	}
}

func encodeInt64(i int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i)^(1<<63))
	return buf
}

func encodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if f >= 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, bits)
	return buf
}

// DecodeValue deserializes data back to a Value of the given type.
func DecodeValue(vType ValueType, data []byte) (Value, error) {
	switch vType {
	case TypeNull:
		return nil, nil
	case TypeString:
		return string(data), nil
	case TypeInt:
		if len(data) != 8 {
			return nil, fmt.Errorf("kvquery: int value must be 8 bytes, got %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data) ^ (1 << 63)), nil
	case TypeFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("kvquery: float value must be 8 bytes, got %d", len(data))
		}
		bits := binary.BigEndian.Uint64(data)
		if bits&(1<<63) != 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), nil
	case TypeBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("kvquery: bool value must be 1 byte, got %d", len(data))
		}
		return data[0] != 0, nil
	case TypeTime:
		if len(data) != 8 {
			return nil, fmt.Errorf("kvquery: time value must be 8 bytes, got %d", len(data))
		}
		nanos := int64(binary.BigEndian.Uint64(data) ^ (1 << 63))
		return time.Unix(0, nanos).UTC(), nil
	case TypeBytes:
		return data, nil
	default:
		return nil, fmt.Errorf("kvquery: unknown value type: %v", vType)
	}
}
