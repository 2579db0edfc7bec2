package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory typed store. It is safe for concurrent use; the
// store usually outlives the controllers reading it.
//
// Missing keys read as zero values. Array keys may be declared up front with
// DeclareArray; otherwise the first write fixes the length.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	lengths map[string]int
}

// NewMemoryStore builds a store seeded with entries. Every seed needs a key
// and a width; duplicate keys are refused.
func NewMemoryStore(entries ...Entry) (*MemoryStore, error) {
	s := &MemoryStore{
		entries: map[string]Entry{},
		lengths: map[string]int{},
	}
	for i, entry := range entries {
		key, err := NormalizeKey(entry.Key)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if entry.Width == WidthUnset {
			return nil, fmt.Errorf("seed entry %q: width is required", key)
		}
		if _, dup := s.entries[key]; dup {
			return nil, fmt.Errorf("seed entry %q: duplicate key", key)
		}
		entry.Key = key
		s.entries[key] = entry.Clone()
		if entry.Width == WidthArray {
			s.lengths[key] = len(entry.Data)
		}
	}
	return s, nil
}

// DeclareArray fixes the accepted length for an array key.
func (s *MemoryStore) DeclareArray(key string, length int) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lengths[key] = length
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetBool(_ context.Context, key string) (bool, error) {
	entry, err := s.scalar(key, WidthBool)
	if err != nil {
		return false, err
	}
	return entry.Number != 0, nil
}

func (s *MemoryStore) GetU8(_ context.Context, key string) (uint8, error) {
	entry, err := s.scalar(key, WidthU8)
	if err != nil {
		return 0, err
	}
	return uint8(entry.Number), nil
}

func (s *MemoryStore) GetU32(_ context.Context, key string) (uint32, error) {
	entry, err := s.scalar(key, WidthU32)
	if err != nil {
		return 0, err
	}
	return entry.Number, nil
}

// GetArray returns length bytes for key. Missing keys read as zeros; a stored
// array of another length is an ErrLengthMismatch.
func (s *MemoryStore) GetArray(_ context.Context, key string, length int) ([]byte, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return make([]byte, length), nil
	}
	if entry.Width != WidthArray {
		return nil, TypeMismatch(key, entry.Width, WidthArray)
	}
	return ReadArray(key, entry.Data, length)
}

func (s *MemoryStore) SetBool(_ context.Context, key string, value bool) error {
	var n uint32
	if value {
		n = 1
	}
	return s.setScalar(key, WidthBool, n)
}

func (s *MemoryStore) SetU8(_ context.Context, key string, value uint8) error {
	return s.setScalar(key, WidthU8, uint32(value))
}

func (s *MemoryStore) SetU32(_ context.Context, key string, value uint32) error {
	return s.setScalar(key, WidthU32, value)
}

// SetArray stores data under key. Writes whose length differs from the
// declared length are rejected and leave the stored bytes untouched.
func (s *MemoryStore) SetArray(_ context.Context, key string, data []byte) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[key]; ok && entry.Width != WidthArray {
		return TypeMismatch(key, entry.Width, WidthArray)
	}
	if want, ok := s.lengths[key]; ok && want != len(data) {
		return ArrayRejected(key, len(data), want)
	}
	s.lengths[key] = len(data)
	s.entries[key] = Entry{Key: key, Width: WidthArray, Data: append([]byte(nil), data...)}
	return nil
}

// Entries returns a sorted copy of every stored entry.
func (s *MemoryStore) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *MemoryStore) scalar(key string, width Width) (Entry, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{Key: key, Width: width}, nil
	}
	if entry.Width != width {
		return Entry{}, TypeMismatch(key, entry.Width, width)
	}
	return entry, nil
}

func (s *MemoryStore) setScalar(key string, width Width, n uint32) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[key]; ok && entry.Width != width {
		return TypeMismatch(key, entry.Width, width)
	}
	s.entries[key] = Entry{Key: key, Width: width, Number: n}
	return nil
}
