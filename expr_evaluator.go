package sysconf

import (
	"fmt"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes registered functions to expr rules, both
// by name and through call("name", ...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEnv is what an option rule sees. Rules are type-checked against it, so
// a misspelled identifier fails when the controller is built.
type exprEnv struct {
	Value   any            `expr:"value"`
	Option  string         `expr:"option"`
	Key     string         `expr:"key"`
	Options map[string]any `expr:"options"`
	Args    map[string]any `expr:"args"`
	Now     time.Time      `expr:"now"`
	Call    callFunc       `expr:"call"`
}

// callFunc dispatches call("name", args...) to the function registry.
type callFunc func(name string, args ...any) (any, error)

type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) engineName() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, wrapEvaluatorError(EngineExpr, errEmptyRule)
	}
	key := programKey(EngineExpr, expression)
	program, ok := cachedProgram[*exprvm.Program](e.cache, key)
	if !ok {
		var err error
		program, err = exprlang.Compile(expression, e.compileOptions()...)
		if err != nil {
			return nil, wrapEvaluationError(EngineExpr, expression, "", err)
		}
		if e.cache != nil {
			e.cache.Set(key, program)
		}
	}
	return &exprRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) compileOptions() []exprlang.Option {
	options := []exprlang.Option{exprlang.Env(exprEnv{})}
	if e.registry == nil {
		return options
	}
	for _, name := range e.registry.Names() {
		name := name
		options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
			return e.registry.Call(name, args...)
		}))
	}
	return options
}

func (e *exprEvaluator) env(ctx RuleContext) exprEnv {
	ctx = ctx.withDefaults()
	return exprEnv{
		Value:   ctx.Value.Native(),
		Option:  string(ctx.Option),
		Key:     ctx.Key,
		Options: ctx.Snapshot,
		Args:    ctx.Args,
		Now:     *ctx.Now,
		Call:    e.call,
	}
}

func (e *exprEvaluator) call(name string, args ...any) (any, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("function %q: no functions registered", name)
	}
	return e.registry.Call(name, args...)
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	result, err := exprlang.Run(r.program, r.evaluator.env(ctx))
	if err != nil {
		return nil, wrapEvaluationError(EngineExpr, r.expression, ctx.optionLabel(), err)
	}
	return result, nil
}
