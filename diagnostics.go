package sysconf

import "fmt"

// DiagnosticKind classifies a recoverable condition reported to the user.
type DiagnosticKind string

const (
	// DiagnosticArrayRejected reports a refused byte array write.
	DiagnosticArrayRejected DiagnosticKind = "array_rejected"
	// DiagnosticUnrecognizedValue reports a derived field computed from the
	// fallback because the primary value was not recognized.
	DiagnosticUnrecognizedValue DiagnosticKind = "unrecognized_value"
	// DiagnosticWriteFailed reports a derived write that failed for a reason
	// other than rejection.
	DiagnosticWriteFailed DiagnosticKind = "write_failed"
)

// Diagnostic is a non-fatal, user-visible report. It never aborts the
// operation that produced it.
type Diagnostic struct {
	Kind    DiagnosticKind
	Option  OptionID
	Key     string
	Message string
	Value   Value
	Err     error
	Detail  map[string]any
}

func (d Diagnostic) String() string {
	if d.Key != "" {
		return fmt.Sprintf("%s [%s %s]: %s", d.Kind, d.Option, d.Key, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// DiagnosticHandler receives diagnostics, typically to show them to the user.
type DiagnosticHandler interface {
	HandleDiagnostic(Diagnostic)
}

// DiagnosticHandlerFunc adapts a function to DiagnosticHandler.
type DiagnosticHandlerFunc func(Diagnostic)

// HandleDiagnostic implements DiagnosticHandler.
func (f DiagnosticHandlerFunc) HandleDiagnostic(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

type noopDiagnosticHandler struct{}

func (noopDiagnosticHandler) HandleDiagnostic(Diagnostic) {}
