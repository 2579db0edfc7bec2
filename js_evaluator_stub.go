//go:build !js_eval

package sysconf

// NewJSEvaluator returns nil in builds without the js_eval tag. Prefer
// NewEvaluator(EngineJS, ...), which reports ErrNoEvaluator instead.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator { return nil }

func jsEvaluatorAvailable() bool { return false }
