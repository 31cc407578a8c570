// Package eval defines the expression-evaluation strategy used by the plot
// models and provides a JavaScript implementation built on goja.
//
// Models never parse field expressions themselves. They hand a list of
// expressions to an Evaluator together with the run and the streams the
// expressions draw from; the evaluator returns one array per expression,
// computed against the run's data at call time. Live runs yield partial
// arrays that grow between calls.
package eval

import (
	"context"
	"errors"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/run"
)

var (
	// ErrNilRun indicates that Resolve was called without a run.
	ErrNilRun = errors.New("run cannot be nil")

	// ErrBadExpr indicates an expression that is neither a string nor a
	// Callable.
	ErrBadExpr = errors.New("expression must be a string or a Callable")

	// ErrMissingStream indicates that a needed stream is not available on
	// the run yet.
	ErrMissingStream = errors.New("needed stream not available")
)

// Callable is a Go-function expression: it computes an array directly from
// the run, bypassing the expression language.
type Callable func(r run.Run) (*array.NDArray, error)

// Expr is a field expression. Supported concrete types are string (a field
// name or expression in the evaluator's language) and Callable.
type Expr interface{}

// Evaluator resolves field expressions against a run's current data.
type Evaluator interface {
	// Resolve evaluates each expression and returns one array per
	// expression, in input order. needsStreams lists the streams the
	// expressions draw from; every named stream must be available on the
	// run. namespace injects extra symbols visible to expressions.
	Resolve(ctx context.Context, exprs []Expr, r run.Run, needsStreams []string, namespace map[string]interface{}) ([]*array.NDArray, error)
}

// Label derives a short display label from an expression: the expression
// text for strings, "custom" for callables.
func Label(expr Expr) string {
	switch v := expr.(type) {
	case string:
		return v
	case Callable:
		return "custom"
	}
	return "?"
}
