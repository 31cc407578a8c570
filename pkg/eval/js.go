package eval

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/run"
)

// JSEvaluator evaluates string expressions as JavaScript with goja. Every
// field of the needed streams is bound as a plain array variable, each stream
// is additionally bound by name as a field→array object, and namespace
// symbols are bound last so they win name collisions.
//
// A fresh runtime is built per Resolve call so symbols never leak between
// runs or between controllers sharing an evaluator.
type JSEvaluator struct {
	logger *zap.Logger
	tracer trace.Tracer
}

// NewJSEvaluator creates a JavaScript evaluator. logger may be nil.
func NewJSEvaluator(logger *zap.Logger) *JSEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSEvaluator{
		logger: logger,
		tracer: otel.Tracer("spectra/eval"),
	}
}

// Resolve implements Evaluator.
func (e *JSEvaluator) Resolve(ctx context.Context, exprs []Expr, r run.Run, needsStreams []string, namespace map[string]interface{}) (results []*array.NDArray, err error) {
	if r == nil {
		return nil, ErrNilRun
	}

	_, span := e.tracer.Start(ctx, "eval.resolve",
		trace.WithAttributes(
			attribute.Int("expr_count", len(exprs)),
			attribute.String("run_uid", run.UID(r)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var vm *goja.Runtime
	results = make([]*array.NDArray, 0, len(exprs))
	for _, expr := range exprs {
		switch v := expr.(type) {
		case Callable:
			out, cerr := v(r)
			if cerr != nil {
				err = fmt.Errorf("callable expression failed: %w", cerr)
				return nil, err
			}
			results = append(results, out)
		case string:
			if vm == nil {
				vm, err = e.buildRuntime(r, needsStreams, namespace)
				if err != nil {
					return nil, err
				}
			}
			value, rerr := vm.RunString(v)
			if rerr != nil {
				if exc, ok := rerr.(*goja.Exception); ok {
					err = fmt.Errorf("expression %q: %s", v, exc.Value().String())
				} else {
					err = fmt.Errorf("expression %q: %w", v, rerr)
				}
				return nil, err
			}
			out, cerr := toNDArray(value.Export())
			if cerr != nil {
				err = fmt.Errorf("expression %q: %w", v, cerr)
				return nil, err
			}
			results = append(results, out)
		default:
			err = fmt.Errorf("%w, got %T", ErrBadExpr, expr)
			return nil, err
		}
	}

	e.logger.Debug("resolved expressions",
		zap.String("run_uid", run.UID(r)),
		zap.Int("count", len(results)))
	return results, nil
}

// buildRuntime binds the run's stream data and the namespace into a new VM.
func (e *JSEvaluator) buildRuntime(r run.Run, needsStreams []string, namespace map[string]interface{}) (*goja.Runtime, error) {
	vm := goja.New()

	for _, name := range needsStreams {
		s, ok := r.Stream(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingStream, name)
		}
		streamObj := make(map[string][]float64)
		for _, field := range s.Fields() {
			col, ok := s.Column(field)
			if !ok {
				continue
			}
			streamObj[field] = col.Data()
			if err := vm.Set(field, col.Data()); err != nil {
				return nil, fmt.Errorf("binding field %q: %w", field, err)
			}
		}
		if err := vm.Set(name, streamObj); err != nil {
			return nil, fmt.Errorf("binding stream %q: %w", name, err)
		}
	}

	for k, v := range namespace {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("binding namespace symbol %q: %w", k, err)
		}
	}
	return vm, nil
}

// toNDArray coerces an exported JS value into an NDArray. Scalars become
// one-element 1D arrays; nested arrays must be rectangular.
func toNDArray(v interface{}) (*array.NDArray, error) {
	if a, ok := v.(*array.NDArray); ok {
		return a, nil
	}
	if f, ok := asFloat(v); ok {
		return array.FromSlice([]float64{f}), nil
	}
	shape, err := nestedShape(v, nil)
	if err != nil {
		return nil, err
	}
	var flat []float64
	if flat, err = flatten(v, flat); err != nil {
		return nil, err
	}
	return array.New(flat, shape...)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func nestedShape(v interface{}, shape []int) ([]int, error) {
	switch arr := v.(type) {
	case []float64:
		return append(shape, len(arr)), nil
	case []interface{}:
		shape = append(shape, len(arr))
		if len(arr) == 0 {
			return shape, nil
		}
		if _, ok := asFloat(arr[0]); ok {
			return shape, nil
		}
		inner, err := nestedShape(arr[0], shape)
		if err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to an array", v)
}

func flatten(v interface{}, out []float64) ([]float64, error) {
	switch arr := v.(type) {
	case []float64:
		return append(out, arr...), nil
	case []interface{}:
		for _, item := range arr {
			if f, ok := asFloat(item); ok {
				out = append(out, f)
				continue
			}
			var err error
			out, err = flatten(item, out)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot coerce %T to an array", v)
}
