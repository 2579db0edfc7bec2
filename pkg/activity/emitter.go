package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "sysconf"

// Config controls whether a controller emits activity and the defaults it
// applies to each event.
type Config struct {
	Enabled bool
	Channel string
	ActorID string
}

// Emitter applies Config defaults and fans events out to hooks. A nil
// Emitter is valid and disabled.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter builds an emitter. Nil hooks are dropped; with no hooks left the
// emitter is disabled whatever cfg.Enabled says.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	cfg.ActorID = strings.TrimSpace(cfg.ActorID)
	return &Emitter{hooks: hooks.compact(), cfg: cfg}
}

// Enabled reports whether Emit will reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit fills the channel and actor when the event leaves them empty and
// notifies every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	event.Channel = orDefault(event.Channel, e.cfg.Channel)
	event.ActorID = orDefault(event.ActorID, e.cfg.ActorID)
	return e.hooks.Notify(ctx, event)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
