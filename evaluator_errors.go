package sysconf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EvaluationError reports a rule that failed to compile or run, naming the
// engine, the expression and the option it guards.
type EvaluationError struct {
	Engine string
	Expr   string
	Option string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Option == "" {
		return fmt.Sprintf("sysconf: %s rule %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
	}
	return fmt.Sprintf("sysconf: %s rule %s for %s: %v", e.Engine, describeExpression(e.Expr), e.Option, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if strings.TrimSpace(expr) == "" {
		return "<empty>"
	}
	return strconv.Quote(expr)
}

// wrapEvaluatorError tags engine-level failures (bad setup, empty rule) with
// the engine name. Errors that already carry context pass through.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "sysconf:") {
		return err
	}
	return fmt.Errorf("sysconf: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches rule context to err. An existing
// EvaluationError only has its empty fields filled in.
func wrapEvaluationError(engine, expr, option string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Option: option, Err: err}
	}
	fill := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fill(&evalErr.Engine, engine)
	fill(&evalErr.Expr, expr)
	fill(&evalErr.Option, option)
	return evalErr
}
