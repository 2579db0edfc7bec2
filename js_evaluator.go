//go:build js_eval

package sysconf

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (e *jsEvaluator) engineName() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile wraps expression in a function body so a rule is a single
// expression, as in the other engines.
func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, errEmptyRule)
	}
	key := programKey(EngineJS, expression)
	program, ok := cachedProgram[*goja.Program](e.cache, key)
	if !ok {
		var err error
		program, err = goja.Compile(EngineJS, fmt.Sprintf("(function(){ return (%s); })()", expression), true)
		if err != nil {
			return nil, wrapEvaluationError(EngineJS, expression, "", err)
		}
		if e.cache != nil {
			e.cache.Set(key, program)
		}
	}
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

// runtime prepares a fresh goja runtime with the rule variables bound.
// Runtimes are not safe to share, so every evaluation gets its own.
func (e *jsEvaluator) runtime(ctx RuleContext) (*goja.Runtime, error) {
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	call := func(name string, args ...any) (any, error) {
		if e.registry == nil {
			return nil, fmt.Errorf("function %q: no functions registered", name)
		}
		return e.registry.Call(name, args...)
	}
	if err := vm.Set("call", call); err != nil {
		return nil, err
	}
	return vm, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	vm, err := r.evaluator.runtime(ctx)
	if err == nil {
		var value goja.Value
		if value, err = vm.RunProgram(r.program); err == nil {
			return value.Export(), nil
		}
	}
	return nil, wrapEvaluationError(EngineJS, r.expression, ctx.optionLabel(), err)
}

func jsEvaluatorAvailable() bool {
	return true
}
