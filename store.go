package sysconf

import "context"

// ConfigStore is the typed key-value store holding the device's system
// settings. Implementations live in pkg/store.
//
// Scalar writes are expected to succeed for well-formed keys. SetArray may
// refuse a write; such errors must match ErrArrayRejected via errors.Is.
type ConfigStore interface {
	GetBool(ctx context.Context, key string) (bool, error)
	GetU8(ctx context.Context, key string) (uint8, error)
	GetU32(ctx context.Context, key string) (uint32, error)
	GetArray(ctx context.Context, key string, length int) ([]byte, error)

	SetBool(ctx context.Context, key string, value bool) error
	SetU8(ctx context.Context, key string, value uint8) error
	SetU32(ctx context.Context, key string, value uint32) error
	SetArray(ctx context.Context, key string, data []byte) error
}
