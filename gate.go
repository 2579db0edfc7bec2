package sysconf

import "sync/atomic"

// SessionGate reports whether a consuming session is currently running. The
// controller asks exactly once, at construction.
type SessionGate interface {
	Active() bool
}

// GateFunc adapts a function to SessionGate.
type GateFunc func() bool

// Active implements SessionGate.
func (f GateFunc) Active() bool {
	if f == nil {
		return false
	}
	return f()
}

// StaticGate is a gate with a fixed answer.
type StaticGate bool

// Active implements SessionGate.
func (g StaticGate) Active() bool { return bool(g) }

// SessionFlag is a process-wide session state owned by the session runtime.
// The runtime calls Start and Stop; controllers only read it.
type SessionFlag struct {
	active atomic.Bool
}

// Start marks the session active.
func (f *SessionFlag) Start() { f.active.Store(true) }

// Stop marks the session inactive.
func (f *SessionFlag) Stop() { f.active.Store(false) }

// Active implements SessionGate.
func (f *SessionFlag) Active() bool { return f.active.Load() }
