package sysconf

import (
	"time"

	"github.com/goliatone/go-sysconf/pkg/activity"
)

// RuleContext carries the inputs of one rule evaluation.
type RuleContext struct {
	Option   OptionID
	Key      string
	Value    Value
	Snapshot map[string]any
	Now      *time.Time
	Args     map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

func (ctx RuleContext) optionLabel() string {
	if ctx.Option != "" {
		return string(ctx.Option)
	}
	return "unknown"
}

// bindings returns the variables visible to a rule.
func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"value":   ctx.Value.Native(),
		"option":  string(ctx.Option),
		"key":     ctx.Key,
		"options": ctx.Snapshot,
		"args":    ctx.Args,
		"now":     ctx.timestamp(),
	}
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	options      []Option
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       Logger
	diagnostics  DiagnosticHandler
	emitter      *activity.Emitter
	actorID      string
	resolver     *Resolver
	strictLock   bool
	err          error
}

func applyControllerOptions(opts []ControllerOption) controllerConfig {
	cfg := controllerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.options) == 0 {
		cfg.options = DefaultOptions()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.diagnostics == nil {
		cfg.diagnostics = noopDiagnosticHandler{}
	}
	if cfg.resolver == nil {
		r := NewResolver(CountryCodes())
		cfg.resolver = &r
	}
	return cfg
}

// WithOptions replaces the default option set.
func WithOptions(options ...Option) ControllerOption {
	return func(cfg *controllerConfig) {
		cloned := make([]Option, len(options))
		for i, opt := range options {
			cloned[i] = opt.clone()
		}
		cfg.options = cloned
	}
}

// WithEvaluator sets the rule evaluator. The expr evaluator is used when none
// is configured.
func WithEvaluator(e Evaluator) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.evaluator = e
	}
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(logger Logger) ControllerOption {
	return func(cfg *controllerConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithDiagnosticHandler registers the receiver for user-visible diagnostics.
func WithDiagnosticHandler(handler DiagnosticHandler) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.diagnostics = handler
	}
}

// WithResolver replaces the country code resolver.
func WithResolver(r Resolver) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.resolver = &r
	}
}

// WithStrictLock makes a change attempted while locked panic instead of
// being logged and ignored. Meant for debug builds.
func WithStrictLock(strict bool) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.strictLock = strict
	}
}
