package sysconf

import "sync"

// ProgramCache stores compiled rule programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns an unbounded, concurrency-safe ProgramCache. Option
// sets are small and fixed, so rules never need eviction.
func NewProgramCache() ProgramCache {
	return &mapProgramCache{programs: map[string]any{}}
}

type mapProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

func (c *mapProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *mapProgramCache) Set(key string, value any) {
	c.mu.Lock()
	c.programs[key] = value
	c.mu.Unlock()
}

func programKey(engine, expression string) string {
	return engine + ":" + expression
}

// cachedProgram returns the program stored under key when it has type T.
func cachedProgram[T any](cache ProgramCache, key string) (T, bool) {
	var zero T
	if cache == nil {
		return zero, false
	}
	stored, ok := cache.Get(key)
	if !ok {
		return zero, false
	}
	program, ok := stored.(T)
	return program, ok
}

// WithProgramCache shares compiled rule programs across controllers.
func WithProgramCache(cache ProgramCache) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.programCache = cache
	}
}
