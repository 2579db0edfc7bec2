package sysconf

import (
	"fmt"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes registered functions through
// call("name", arg).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// celEvaluator checks rules against the declared rule variables. The CEL
// environment is built once and shared by every rule it compiles.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) engineName() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, errEmptyRule)
	}
	key := programKey(EngineCEL, expression)
	if program, ok := cachedProgram[celgo.Program](e.cache, key); ok {
		return &celRule{program: program, expression: expression}, nil
	}

	env, err := e.environment()
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return &celRule{program: program, expression: expression}, nil
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("value", celgo.DynType),
			celgo.Variable("option", celgo.StringType),
			celgo.Variable("key", celgo.StringType),
			celgo.Variable("options", celgo.MapType(celgo.StringType, celgo.DynType)),
			celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
			celgo.Variable("now", celgo.TimestampType),
		}
		if e.registry != nil {
			opts = append(opts, celgo.Function("call", celgo.Overload(
				"call_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType},
				celgo.DynType,
				celgo.FunctionBinding(functions.FunctionOp(e.call)),
			)))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

// call adapts registry functions to CEL values. The first argument names the
// function; errors come back as CEL error values.
func (e *celEvaluator) call(values ...ref.Val) ref.Val {
	if len(values) == 0 {
		return types.NewErr("call requires a function name")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("call name must be a string, got %s", values[0].Type().TypeName())
	}
	args := make([]any, 0, len(values)-1)
	for _, val := range values[1:] {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celRule struct {
	program    celgo.Program
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	out, _, err := r.program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.optionLabel(), err)
	}
	if out == nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.optionLabel(), fmt.Errorf("rule produced no value"))
	}
	return out.Value(), nil
}
