package activity

import (
	"context"
	"strings"
	"sync"
)

// CaptureHook keeps every normalized event it receives. Tests and examples
// use it to assert on emitted activity.
type CaptureHook struct {
	Events []Event
	// Err is returned from every Notify call.
	Err error
	mu  sync.Mutex
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Verbs lists the captured verbs in arrival order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.Events))
	for _, event := range h.Events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// WithVerbPrefix returns the captured events whose verb starts with prefix,
// such as VerbDiagnosticPrefix.
func (h *CaptureHook) WithVerbPrefix(prefix string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, event := range h.Events {
		if strings.HasPrefix(event.Verb, prefix) {
			out = append(out, event)
		}
	}
	return out
}
