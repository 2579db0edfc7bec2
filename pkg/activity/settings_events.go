package activity

import (
	"strings"
	"time"
)

// Verbs emitted for settings activity.
const (
	VerbSettingsLoaded   = "sysconf.settings.loaded"
	VerbOptionChanged    = "sysconf.option.changed"
	VerbDiagnosticPrefix = "sysconf.diagnostic."
)

// Object types used by settings events.
const (
	ObjectSettings = "sysconf.settings"
	ObjectOption   = "sysconf.option"
)

// OptionChange describes a committed option write.
type OptionChange struct {
	ActorID      string
	OptionID     string
	Key          string
	OldValue     any
	NewValue     any
	DerivedKey   string
	DerivedValue any
	OccurredAt   time.Time
}

// DiagnosticInput describes a user-visible diagnostic.
type DiagnosticInput struct {
	ActorID    string
	Kind       string
	OptionID   string
	Key        string
	Message    string
	Value      any
	Err        error
	Detail     map[string]any
	OccurredAt time.Time
}

// SettingsLoad describes a controller load.
type SettingsLoad struct {
	ActorID    string
	Options    int
	Locked     bool
	OccurredAt time.Time
}

// BuildOptionChangedEvent builds the event for a committed option write.
func BuildOptionChangedEvent(change OptionChange) Event {
	metadata := map[string]any{
		"option": change.OptionID,
		"key":    change.Key,
	}
	if change.OldValue != nil {
		metadata["old_value"] = change.OldValue
	}
	if change.NewValue != nil {
		metadata["new_value"] = change.NewValue
	}
	if change.DerivedKey != "" {
		metadata["derived_key"] = change.DerivedKey
		metadata["derived_value"] = change.DerivedValue
	}
	return Event{
		Verb:       VerbOptionChanged,
		Severity:   SeverityInfo,
		ActorID:    strings.TrimSpace(change.ActorID),
		ObjectType: ObjectOption,
		ObjectID:   objectID(change.Key, change.OptionID),
		Metadata:   metadata,
		OccurredAt: change.OccurredAt,
	}
}

// BuildDiagnosticEvent builds a warning event for a diagnostic. The verb
// carries the diagnostic kind.
func BuildDiagnosticEvent(input DiagnosticInput) Event {
	metadata := cloneMap(input.Detail)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["kind"] = input.Kind
	metadata["message"] = input.Message
	if input.OptionID != "" {
		metadata["option"] = input.OptionID
	}
	if input.Value != nil {
		metadata["value"] = input.Value
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = "unknown"
	}
	return Event{
		Verb:       VerbDiagnosticPrefix + kind,
		Severity:   SeverityWarning,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: ObjectOption,
		ObjectID:   objectID(input.Key, input.OptionID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// BuildSettingsLoadedEvent builds the event emitted once a controller has
// loaded its options and evaluated the session gate.
func BuildSettingsLoadedEvent(load SettingsLoad) Event {
	return Event{
		Verb:       VerbSettingsLoaded,
		Severity:   SeverityInfo,
		ActorID:    strings.TrimSpace(load.ActorID),
		ObjectType: ObjectSettings,
		ObjectID:   "system",
		Metadata: map[string]any{
			"options": load.Options,
			"locked":  load.Locked,
		},
		OccurredAt: load.OccurredAt,
	}
}

func objectID(key, optionID string) string {
	if id := strings.TrimSpace(key); id != "" {
		return id
	}
	if id := strings.TrimSpace(optionID); id != "" {
		return id
	}
	return ObjectOption
}
