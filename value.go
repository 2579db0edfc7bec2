package sysconf

import (
	"bytes"
	"fmt"
)

// Kind is the storage width of an option value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindU8
	KindU32
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU32:
		return "u32"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Value is a tagged value holding exactly one of bool, uint8, uint32 or a byte
// array. The zero Value is invalid.
type Value struct {
	kind Kind
	num  uint32
	data []byte
}

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// U8 wraps an 8-bit unsigned integer.
func U8(n uint8) Value {
	return Value{kind: KindU8, num: uint32(n)}
}

// U32 wraps a 32-bit unsigned integer.
func U32(n uint32) Value {
	return Value{kind: KindU32, num: n}
}

// Bytes wraps a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, data: append([]byte{}, b...)}
}

func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v carries a payload.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Len returns the byte length for KindBytes values and 0 otherwise.
func (v Value) Len() int {
	if v.kind != KindBytes {
		return 0
	}
	return len(v.data)
}

func (v Value) AsBool() (bool, bool) {
	return v.num != 0, v.kind == KindBool
}

func (v Value) AsU8() (uint8, bool) {
	return uint8(v.num), v.kind == KindU8
}

func (v Value) AsU32() (uint32, bool) {
	return v.num, v.kind == KindU32
}

// AsBytes returns a copy of the byte payload.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte{}, v.data...), true
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindBytes {
		return bytes.Equal(v.data, other.data)
	}
	return v.num == other.num
}

// Native returns the payload as a plain Go value. Integers widen to int64 so
// rule engines compare them without conversion.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.num != 0
	case KindU8, KindU32:
		return int64(v.num)
	case KindBytes:
		out := make([]any, len(v.data))
		for i, b := range v.data {
			out[i] = int64(b)
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.num != 0)
	case KindU8:
		return fmt.Sprintf("u8(%d)", v.num)
	case KindU32:
		return fmt.Sprintf("u32(%d)", v.num)
	case KindBytes:
		return fmt.Sprintf("bytes(% x)", v.data)
	default:
		return "invalid"
	}
}
