package sysconf

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-sysconf/pkg/store"
)

var (
	// ErrArrayRejected reports that the store refused a byte array write.
	ErrArrayRejected = store.ErrArrayRejected
	// ErrLocked reports a mutation attempt while a session is active.
	ErrLocked = errors.New("sysconf: settings are locked while a session is active")
	// ErrUnknownOption reports an option id that is not part of the set.
	ErrUnknownOption = errors.New("sysconf: unknown option")
	// ErrKindMismatch reports a value whose kind differs from the option's kind.
	ErrKindMismatch = errors.New("sysconf: value kind mismatch")
	// ErrLengthMismatch reports a byte value with the wrong length.
	ErrLengthMismatch = errors.New("sysconf: value length mismatch")
	// ErrUnrecognizedLanguage reports a language outside the known set.
	ErrUnrecognizedLanguage = errors.New("sysconf: unrecognized language")
	// ErrStoreRequired reports a missing ConfigStore.
	ErrStoreRequired = errors.New("sysconf: config store is required")
	// ErrGateRequired reports a missing SessionGate.
	ErrGateRequired = errors.New("sysconf: session gate is required")
	// ErrNoEvaluator reports a rule engine that cannot be built.
	ErrNoEvaluator = errors.New("sysconf: evaluator not configured")
	// ErrInvalidOption reports a malformed option descriptor or option set.
	ErrInvalidOption = errors.New("sysconf: invalid option")
)

// WriteReason classifies a failed store write.
type WriteReason string

const (
	// ReasonArrayRejected means the store refused a byte array.
	ReasonArrayRejected WriteReason = "array_rejected"
	// ReasonStore means the store failed for another reason.
	ReasonStore WriteReason = "store"
)

// WriteError describes a failed write of one key.
type WriteError struct {
	Key    string
	Reason WriteReason
	Err    error
}

func (e *WriteError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("sysconf: write %q (%s): %v", e.Key, e.Reason, e.Err)
}

func (e *WriteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newWriteError(key string, err error) error {
	if err == nil {
		return nil
	}
	reason := ReasonStore
	if errors.Is(err, ErrArrayRejected) {
		reason = ReasonArrayRejected
	}
	return &WriteError{Key: key, Reason: reason, Err: err}
}

// RuleViolationError reports a value refused by an option rule.
type RuleViolationError struct {
	Option OptionID
	Rule   string
	Value  Value
	Err    error
}

func (e *RuleViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("sysconf: option %s rejected %s (rule %q): %v", e.Option, e.Value, e.Rule, e.Err)
	}
	return fmt.Sprintf("sysconf: option %s rejected %s (rule %q)", e.Option, e.Value, e.Rule)
}

func (e *RuleViolationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
