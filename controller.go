package sysconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-sysconf/pkg/activity"
)

// Controller owns the local values of an option set, writes changes through
// to a ConfigStore and keeps derived keys in step with their primary option.
//
// Whether a session is active is asked once, in New. A controller built while
// a session runs stays locked for its whole lifetime and never writes.
//
// Controller is not safe for concurrent use.
type Controller struct {
	store   ConfigStore
	cfg     controllerConfig
	entries []*entry
	byID    map[OptionID]*entry
	locked  bool
}

type entry struct {
	option  Option
	binding *FieldBinding
	derived *FieldBinding
	rule    CompiledRule
	value   Value
}

// Report describes the outcome of one accepted change.
type Report struct {
	Option      OptionID
	Key         string
	Value       Value
	Derived     *DerivedWrite
	Diagnostics []Diagnostic
}

// DerivedWrite describes the dependent write triggered by a change. Err is
// set when the store refused it; the primary write is kept regardless.
type DerivedWrite struct {
	Key   string
	Value Value
	Err   error
}

// New loads every option from store and then queries gate exactly once.
func New(ctx context.Context, store ConfigStore, gate SessionGate, opts ...ControllerOption) (*Controller, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if gate == nil {
		return nil, ErrGateRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := applyControllerOptions(opts)
	if cfg.err != nil {
		return nil, cfg.err
	}
	if err := validateOptions(cfg.options); err != nil {
		return nil, err
	}

	c := &Controller{
		store:   store,
		cfg:     cfg,
		entries: make([]*entry, 0, len(cfg.options)),
		byID:    make(map[OptionID]*entry, len(cfg.options)),
	}
	for _, opt := range cfg.options {
		e, err := newEntry(opt)
		if err != nil {
			return nil, err
		}
		c.entries = append(c.entries, e)
		c.byID[opt.ID] = e
	}
	if err := c.compileRules(); err != nil {
		return nil, err
	}
	if err := c.load(ctx); err != nil {
		return nil, err
	}

	c.locked = gate.Active()
	c.cfg.logger.Log(LogEvent{Op: "gate", Level: slog.LevelInfo, Value: Bool(c.locked)})

	c.emit(ctx, activity.BuildSettingsLoadedEvent(activity.SettingsLoad{
		ActorID: c.cfg.actorID,
		Options: len(c.entries),
		Locked:  c.locked,
	}))
	return c, nil
}

func newEntry(opt Option) (*entry, error) {
	binding, err := NewFieldBinding(opt.Key, opt.Kind, opt.Length)
	if err != nil {
		return nil, err
	}
	e := &entry{option: opt, binding: binding}
	if opt.Derived != nil {
		derived, err := NewFieldBinding(opt.Derived.Key, KindBytes, opt.Derived.Length)
		if err != nil {
			return nil, err
		}
		e.derived = derived
	}
	return e, nil
}

// load reads every option before touching local state, so a failed read
// leaves all values as they were.
func (c *Controller) load(ctx context.Context) error {
	values := make([]Value, len(c.entries))
	for i, e := range c.entries {
		value, err := e.binding.Read(ctx, c.store)
		if err != nil {
			c.cfg.logger.Log(LogEvent{Op: "load", Option: e.option.ID, Key: e.option.Key, Err: err, Level: slog.LevelError})
			return fmt.Errorf("sysconf: load %s: %w", e.option.ID, err)
		}
		values[i] = value
	}
	for i, e := range c.entries {
		e.value = values[i]
		c.cfg.logger.Log(LogEvent{Op: "load", Option: e.option.ID, Key: e.option.Key, Value: values[i], Level: slog.LevelDebug})
	}
	return nil
}

// Reload re-reads every option from the store. It either refreshes every
// local value or, on error, none of them. The lock state is kept.
func (c *Controller) Reload(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.load(ctx)
}

// IsLocked reports whether the option set is read-only for this controller.
func (c *Controller) IsLocked() bool { return c.locked }

// Value returns the local value of id.
func (c *Controller) Value(id OptionID) (Value, bool) {
	e, ok := c.byID[id]
	if !ok {
		return Value{}, false
	}
	return e.value, true
}

// Options returns the option descriptors in display order.
func (c *Controller) Options() []Option {
	out := make([]Option, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.option.clone()
	}
	return out
}

// Snapshot returns the local values keyed by option id, as plain Go values.
func (c *Controller) Snapshot() map[string]any {
	out := make(map[string]any, len(c.entries))
	for _, e := range c.entries {
		out[string(e.option.ID)] = e.value.Native()
	}
	return out
}

// OnOptionChanged applies a user change. While locked it returns ErrLocked
// and performs no writes. A refused dependent write is reported through the
// returned diagnostics and does not undo the primary write.
func (c *Controller) OnOptionChanged(ctx context.Context, id OptionID, value Value) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.locked {
		c.cfg.logger.Log(LogEvent{Op: "locked_mutation", Option: id, Value: value, Err: ErrLocked, Level: slog.LevelWarn})
		if c.cfg.strictLock {
			panic(fmt.Sprintf("sysconf: change to %s while locked", id))
		}
		return Report{}, ErrLocked
	}

	e, ok := c.byID[id]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownOption, id)
	}
	if err := e.binding.Check(value); err != nil {
		return Report{}, err
	}
	if err := c.checkRule(e, value); err != nil {
		return Report{}, err
	}

	previous := e.value
	e.value = value
	report := Report{Option: id, Key: e.option.Key, Value: value}

	start := time.Now()
	err := e.binding.Write(ctx, c.store, value)
	c.cfg.logger.Log(LogEvent{Op: "write", Option: id, Key: e.option.Key, Value: value, Duration: time.Since(start), Err: err, Level: slog.LevelDebug})
	if err != nil {
		if !errors.Is(err, ErrArrayRejected) {
			e.value = previous
			return Report{}, err
		}
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Kind:    DiagnosticArrayRejected,
			Option:  id,
			Key:     e.option.Key,
			Message: fmt.Sprintf("Failed to update %s in SYSCONF", e.option.Key),
			Value:   value,
			Err:     err,
		})
	}

	if e.derived != nil {
		derived, diags := c.writeDerived(ctx, e, value)
		report.Derived = derived
		report.Diagnostics = append(report.Diagnostics, diags...)
	}

	for _, d := range report.Diagnostics {
		c.dispatch(ctx, d)
	}
	change := activity.OptionChange{
		ActorID:  c.cfg.actorID,
		OptionID: string(id),
		Key:      e.option.Key,
		OldValue: previous.Native(),
		NewValue: value.Native(),
	}
	if report.Derived != nil && report.Derived.Err == nil {
		change.DerivedKey = report.Derived.Key
		change.DerivedValue = report.Derived.Value.Native()
	}
	c.emit(ctx, activity.BuildOptionChangedEvent(change))
	return report, nil
}

// writeDerived resolves and writes the dependent key of e. Failures become
// diagnostics; nothing here returns an error to the caller.
func (c *Controller) writeDerived(ctx context.Context, e *entry, value Value) (*DerivedWrite, []Diagnostic) {
	var diags []Diagnostic

	n, _ := value.AsU8()
	code, diag := c.cfg.resolver.Resolve(Language(n))
	if diag != nil {
		d := *diag
		d.Option = e.option.ID
		d.Key = e.derived.Key()
		diags = append(diags, d)
	}

	payload, err := c.derivedPayload(ctx, e.derived, code)
	if err != nil {
		diags = append(diags, Diagnostic{
			Kind:    DiagnosticWriteFailed,
			Option:  e.option.ID,
			Key:     e.derived.Key(),
			Message: fmt.Sprintf("Failed to read %s from SYSCONF", e.derived.Key()),
			Err:     err,
		})
		return &DerivedWrite{Key: e.derived.Key(), Err: err}, diags
	}

	result := &DerivedWrite{Key: e.derived.Key(), Value: payload}
	err = e.derived.Write(ctx, c.store, payload)
	c.cfg.logger.Log(LogEvent{Op: "derived_write", Option: e.option.ID, Key: e.derived.Key(), Value: payload, Err: err, Level: slog.LevelDebug})
	if err == nil {
		return result, diags
	}

	result.Err = err
	kind := DiagnosticWriteFailed
	message := fmt.Sprintf("Failed to write %s to SYSCONF", e.derived.Key())
	if errors.Is(err, ErrArrayRejected) {
		kind = DiagnosticArrayRejected
		message = "Failed to update country code in SYSCONF"
	}
	diags = append(diags, Diagnostic{
		Kind:    kind,
		Option:  e.option.ID,
		Key:     e.derived.Key(),
		Message: message,
		Value:   payload,
		Err:     err,
	})
	return result, diags
}

// derivedPayload builds the bytes for a derived key. Longer arrays keep their
// stored tail and only byte 0 is replaced.
func (c *Controller) derivedPayload(ctx context.Context, b *FieldBinding, code byte) (Value, error) {
	if b.Length() == 1 {
		return Bytes([]byte{code}), nil
	}
	current, err := b.Read(ctx, c.store)
	if err != nil {
		return Value{}, err
	}
	data, _ := current.AsBytes()
	data[0] = code
	return Bytes(data), nil
}

func (c *Controller) dispatch(ctx context.Context, d Diagnostic) {
	c.cfg.logger.Log(LogEvent{Op: "diagnostic", Option: d.Option, Key: d.Key, Value: d.Value, Err: d.Err, Level: slog.LevelWarn})
	c.cfg.diagnostics.HandleDiagnostic(d)

	var value any
	if d.Value.IsValid() {
		value = d.Value.Native()
	}
	c.emit(ctx, activity.BuildDiagnosticEvent(activity.DiagnosticInput{
		ActorID:  c.cfg.actorID,
		Kind:     string(d.Kind),
		OptionID: string(d.Option),
		Key:      d.Key,
		Message:  d.Message,
		Value:    value,
		Err:      d.Err,
		Detail:   d.Detail,
	}))
}

func (c *Controller) emit(ctx context.Context, event activity.Event) {
	if !c.cfg.emitter.Enabled() {
		return
	}
	if err := c.cfg.emitter.Emit(ctx, event); err != nil {
		c.cfg.logger.Log(LogEvent{Op: "activity", Err: err, Level: slog.LevelWarn})
	}
}

// SetLanguage changes the system language.
func (c *Controller) SetLanguage(ctx context.Context, lang Language) (Report, error) {
	return c.OnOptionChanged(ctx, OptionLanguage, lang.Value())
}

// SetBool changes a boolean option.
func (c *Controller) SetBool(ctx context.Context, id OptionID, v bool) (Report, error) {
	return c.OnOptionChanged(ctx, id, Bool(v))
}

// SetU8 changes an 8-bit option.
func (c *Controller) SetU8(ctx context.Context, id OptionID, v uint8) (Report, error) {
	return c.OnOptionChanged(ctx, id, U8(v))
}

// SetU32 changes a 32-bit option.
func (c *Controller) SetU32(ctx context.Context, id OptionID, v uint32) (Report, error) {
	return c.OnOptionChanged(ctx, id, U32(v))
}

// WithActivity routes load, change and diagnostic events to hooks.
func WithActivity(hooks activity.Hooks, cfg activity.Config) ControllerOption {
	return func(c *controllerConfig) {
		c.emitter = activity.NewEmitter(hooks, cfg)
		c.actorID = cfg.ActorID
	}
}
