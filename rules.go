package sysconf

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Rule engine names accepted by NewEvaluator and Config.RuleEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// NewEvaluator builds the evaluator registered under engine. The JS engine
// requires the js_eval build tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

var errEmptyRule = errors.New("expression must not be empty")

// engineNamer is implemented by the built-in evaluators.
type engineNamer interface {
	engineName() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engineName()
	}
	return "custom"
}

func (c *Controller) resolveEvaluator() (Evaluator, error) {
	if c.cfg.evaluator != nil {
		return c.cfg.evaluator, nil
	}
	evaluator, err := NewEvaluator(EngineExpr, c.cfg.programCache, c.cfg.functions)
	if err != nil {
		return nil, err
	}
	c.cfg.evaluator = evaluator
	return evaluator, nil
}

// compileRules prepares every option rule so syntax errors surface at
// construction instead of on the first change.
func (c *Controller) compileRules() error {
	for _, e := range c.entries {
		if strings.TrimSpace(e.option.Rule) == "" {
			continue
		}
		evaluator, err := c.resolveEvaluator()
		if err != nil {
			return err
		}
		rule, err := evaluator.Compile(e.option.Rule)
		if err != nil {
			return fmt.Errorf("sysconf: compile rule for %s: %w", e.option.ID, wrapEvaluationError(evaluatorEngineName(evaluator), e.option.Rule, string(e.option.ID), err))
		}
		e.rule = rule
	}
	return nil
}

// checkRule runs the option rule against value. Rules must return a bool.
func (c *Controller) checkRule(e *entry, value Value) error {
	if e.rule == nil {
		return nil
	}
	ctx := RuleContext{
		Option:   e.option.ID,
		Key:      e.option.Key,
		Value:    value,
		Snapshot: c.Snapshot(),
	}
	start := time.Now()
	result, err := e.rule.Evaluate(ctx)
	duration := time.Since(start)
	c.cfg.logger.Log(LogEvent{
		Op:       "rule",
		Option:   e.option.ID,
		Key:      e.option.Key,
		Value:    value,
		Engine:   evaluatorEngineName(c.cfg.evaluator),
		Expr:     e.option.Rule,
		Duration: duration,
		Err:      err,
		Level:    slog.LevelDebug,
	})
	if err != nil {
		return &RuleViolationError{Option: e.option.ID, Rule: e.option.Rule, Value: value, Err: err}
	}
	ok, isBool := result.(bool)
	if !isBool {
		return &RuleViolationError{
			Option: e.option.ID,
			Rule:   e.option.Rule,
			Value:  value,
			Err:    fmt.Errorf("rule must return bool, got %T", result),
		}
	}
	if !ok {
		return &RuleViolationError{Option: e.option.ID, Rule: e.option.Rule, Value: value}
	}
	return nil
}
