// Package usersink forwards settings activity to a go-users ActivitySink so
// option changes and diagnostics land in the same audit trail as user actions.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-sysconf/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// MinSeverity drops events below the given severity. Empty keeps all.
	MinSeverity activity.Severity
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if rank(normalized.Severity) < rank(h.MinSeverity) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{"severity": string(normalized.Severity)}
	for key, value := range normalized.Metadata {
		data[key] = value
	}

	return h.Sink.Log(ctx, usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	})
}

func rank(s activity.Severity) int {
	switch s {
	case activity.SeverityError:
		return 3
	case activity.SeverityWarning:
		return 2
	case activity.SeverityInfo:
		return 1
	default:
		return 0
	}
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
