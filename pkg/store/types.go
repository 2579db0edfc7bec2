package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArrayRejected is returned when a byte array write is refused.
	ErrArrayRejected = errors.New("store: array rejected")
	// ErrTypeMismatch is returned when a key is read or written with a width
	// different from the one it holds.
	ErrTypeMismatch = errors.New("store: type mismatch")
	// ErrKeyRequired is returned for empty keys.
	ErrKeyRequired = errors.New("store: key is required")
	// ErrLengthMismatch is returned when an array is read with a length
	// different from the one it holds.
	ErrLengthMismatch = errors.New("store: length mismatch")
)

// Width identifies the storage width of a key.
type Width uint8

const (
	WidthUnset Width = iota
	WidthBool
	WidthU8
	WidthU32
	WidthArray
)

func (w Width) String() string {
	switch w {
	case WidthBool:
		return "bool"
	case WidthU8:
		return "u8"
	case WidthU32:
		return "u32"
	case WidthArray:
		return "array"
	default:
		return "unset"
	}
}

// Entry is one stored key with its raw payload. Scalars are kept in Number,
// bools as 0/1.
type Entry struct {
	Key    string
	Width  Width
	Number uint32
	Data   []byte
}

// Clone returns a copy of the entry detached from the store's buffers.
func (e Entry) Clone() Entry {
	out := e
	if e.Data != nil {
		out.Data = append([]byte(nil), e.Data...)
	}
	return out
}

// NormalizeKey trims surrounding whitespace and rejects empty keys.
func NormalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrKeyRequired
	}
	return key, nil
}

// TypeMismatch builds an ErrTypeMismatch error for key.
func TypeMismatch(key string, have, want Width) error {
	return fmt.Errorf("%w: key %q holds %s, requested %s", ErrTypeMismatch, key, have, want)
}

// ArrayRejected builds an ErrArrayRejected error for a write of have bytes to a
// key declared with want bytes.
func ArrayRejected(key string, have, want int) error {
	return fmt.Errorf("%w: key %q expects %d bytes, got %d", ErrArrayRejected, key, want, have)
}

// LengthMismatch builds an ErrLengthMismatch error for a read of want bytes
// from a key holding have bytes.
func LengthMismatch(key string, have, want int) error {
	return fmt.Errorf("%w: key %q holds %d bytes, requested %d", ErrLengthMismatch, key, have, want)
}

// ReadArray sizes stored data for a read of length bytes. Empty data reads as
// zeros; anything else must match exactly.
func ReadArray(key string, data []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	if len(data) == 0 {
		return out, nil
	}
	if len(data) != length {
		return nil, LengthMismatch(key, len(data), length)
	}
	copy(out, data)
	return out, nil
}
