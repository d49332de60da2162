// Package condition evaluates the restricted expression sublanguage used
// by hidden_if, disabled_if, and formula declarations. Expressions run in
// a sandbox whose only environment is the record's field values; there is
// no access to host code, I/O, or globals.
package condition

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs record-scoped expressions. Compiled
// programs are cached by source text; the cache is safe for concurrent
// use.
type Evaluator struct {
	cache   map[string]*vm.Program
	cacheMu sync.RWMutex
}

// New creates an evaluator with an empty program cache.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Check compiles an expression without running it. Used at module load
// time so broken expressions are rejected before any record is touched.
func (e *Evaluator) Check(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

// EvalBool evaluates a condition against record data. A condition only
// holds when it cleanly yields true: evaluation errors and non-boolean
// results report false alongside the error, so a broken expression never
// opens a gate it was meant to close.
func (e *Evaluator) EvalBool(expression string, record map[string]any) (bool, error) {
	result, err := e.eval(expression, record)
	if err != nil {
		return false, err
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q yielded %T, want bool", expression, result)
	}
	return b, nil
}

// EvalFormula computes a derived numeric value. Operands that are absent
// or non-numeric coerce to zero, and any evaluation failure yields zero:
// a half-filled form must never error out of a computed field.
func (e *Evaluator) EvalFormula(expression string, record map[string]any) float64 {
	env := make(map[string]any, len(record))
	for k, v := range record {
		env[k] = toNumber(v)
	}

	result, err := e.eval(expression, env)
	if err != nil {
		return 0
	}
	return toNumber(result)
}

func (e *Evaluator) eval(expression string, env map[string]any) (any, error) {
	program, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("run expression: %w", err)
	}
	return result, nil
}

func (e *Evaluator) getOrCompile(expression string) (*vm.Program, error) {
	e.cacheMu.RLock()
	program, ok := e.cache[expression]
	e.cacheMu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	e.cache[expression] = program
	e.cacheMu.Unlock()

	return program, nil
}

// ClearCache drops all compiled programs. Called on registry reload so
// stale expressions do not accumulate.
func (e *Evaluator) ClearCache() {
	e.cacheMu.Lock()
	e.cache = make(map[string]*vm.Program)
	e.cacheMu.Unlock()
}

// toNumber coerces a record value for formula arithmetic. Anything that
// is not a number becomes zero.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}
