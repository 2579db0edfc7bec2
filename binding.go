package sysconf

import (
	"context"
	"fmt"
	"strings"
)

// FieldBinding couples a store key with a value kind. Reads always hit the
// store; there is no caching or batching.
type FieldBinding struct {
	key    string
	kind   Kind
	length int
}

// NewFieldBinding builds a binding for key. length is only used for KindBytes.
func NewFieldBinding(key string, kind Kind, length int) (*FieldBinding, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: binding key is required", ErrInvalidOption)
	}
	switch kind {
	case KindBool, KindU8, KindU32:
		length = 0
	case KindBytes:
		if length <= 0 {
			return nil, fmt.Errorf("%w: binding %q: bytes length must be positive", ErrInvalidOption, key)
		}
	default:
		return nil, fmt.Errorf("%w: binding %q: unsupported kind %s", ErrInvalidOption, key, kind)
	}
	return &FieldBinding{key: key, kind: kind, length: length}, nil
}

func (b *FieldBinding) Key() string { return b.key }

func (b *FieldBinding) Kind() Kind { return b.kind }

// Length returns the declared byte length for KindBytes bindings.
func (b *FieldBinding) Length() int { return b.length }

// Check validates value against the binding's kind and length.
func (b *FieldBinding) Check(value Value) error {
	if value.Kind() != b.kind {
		return fmt.Errorf("%w: %q expects %s, got %s", ErrKindMismatch, b.key, b.kind, value.Kind())
	}
	if b.kind == KindBytes && value.Len() != b.length {
		return fmt.Errorf("%w: %q expects %d bytes, got %d", ErrLengthMismatch, b.key, b.length, value.Len())
	}
	return nil
}

// Read fetches the current value from the store.
func (b *FieldBinding) Read(ctx context.Context, s ConfigStore) (Value, error) {
	var (
		value Value
		err   error
	)
	switch b.kind {
	case KindBool:
		var v bool
		v, err = s.GetBool(ctx, b.key)
		value = Bool(v)
	case KindU8:
		var v uint8
		v, err = s.GetU8(ctx, b.key)
		value = U8(v)
	case KindU32:
		var v uint32
		v, err = s.GetU32(ctx, b.key)
		value = U32(v)
	case KindBytes:
		var v []byte
		v, err = s.GetArray(ctx, b.key, b.length)
		value = Bytes(v)
	default:
		return Value{}, fmt.Errorf("%w: binding %q: unsupported kind %s", ErrInvalidOption, b.key, b.kind)
	}
	if err != nil {
		return Value{}, fmt.Errorf("sysconf: read %q: %w", b.key, err)
	}
	if b.kind == KindBytes && value.Len() != b.length {
		return Value{}, fmt.Errorf("sysconf: read %q: %w: got %d bytes, want %d", b.key, ErrLengthMismatch, value.Len(), b.length)
	}
	return value, nil
}

// Write pushes value to the store. Kind and length are checked before the
// store is touched. Store failures come back as *WriteError.
func (b *FieldBinding) Write(ctx context.Context, s ConfigStore, value Value) error {
	if err := b.Check(value); err != nil {
		return err
	}
	var err error
	switch b.kind {
	case KindBool:
		v, _ := value.AsBool()
		err = s.SetBool(ctx, b.key, v)
	case KindU8:
		v, _ := value.AsU8()
		err = s.SetU8(ctx, b.key, v)
	case KindU32:
		v, _ := value.AsU32()
		err = s.SetU32(ctx, b.key, v)
	case KindBytes:
		v, _ := value.AsBytes()
		err = s.SetArray(ctx, b.key, v)
	}
	return newWriteError(b.key, err)
}
