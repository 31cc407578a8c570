package builders

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/eval"
	"github.com/helioworks/Spectra/pkg/plotspec"
	"github.com/helioworks/Spectra/pkg/run"
)

// ErrNoField indicates that an image model was configured without a field
// expression.
var ErrNoField = errors.New("field expression is required")

// ImageConfig configures an Image model.
type ImageConfig struct {
	// Field is the expression reduced to a 2D image.
	Field eval.Expr

	// NeedsStreams lists the streams Field draws from.
	// Default: ["primary"].
	NeedsStreams []string

	// Namespace injects extra symbols into expression evaluation.
	Namespace map[string]interface{}

	// LabelMaker overrides the default title.
	LabelMaker LabelMaker

	// Axes supplies an existing axes to draw into. If nil, new axes and a
	// figure are created.
	Axes *plotspec.Axes

	// Evaluator resolves the expression. Default: eval.NewJSEvaluator.
	Evaluator eval.Evaluator

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

// Image plots one run's field as a 2D image.
//
// Data with more than two dimensions is collapsed by repeatedly taking the
// slice at the floor-of-half index along the leading axis until two
// dimensions remain. This is a middle-slice selection, not an average.
type Image struct {
	field        eval.Expr
	needsStreams []string
	namespace    map[string]interface{}
	labelMaker   LabelMaker
	evaluator    eval.Evaluator
	logger       *zap.Logger

	current run.Run
	axes    *plotspec.Axes
	figure  *plotspec.Figure
}

// NewImage creates the model and its figure.
func NewImage(cfg ImageConfig) (*Image, error) {
	if cfg.Field == nil {
		return nil, ErrNoField
	}
	if len(cfg.NeedsStreams) == 0 {
		cfg.NeedsStreams = []string{"primary"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = eval.NewJSEvaluator(cfg.Logger)
	}
	if cfg.LabelMaker == nil {
		cfg.LabelMaker = defaultImageLabelMaker()
	}

	m := &Image{
		field:        cfg.Field,
		needsStreams: append([]string(nil), cfg.NeedsStreams...),
		namespace:    cfg.Namespace,
		labelMaker:   cfg.LabelMaker,
		evaluator:    cfg.Evaluator,
		logger:       cfg.Logger,
	}
	if cfg.Axes != nil {
		m.axes = cfg.Axes
		m.figure = plotspec.NewFigure("", m.axes)
	} else {
		m.axes = plotspec.NewAxes()
		m.figure = plotspec.NewFigure("", m.axes)
	}
	return m, nil
}

// Run returns the currently-viewed run, or nil.
func (m *Image) Run() run.Run { return m.current }

// SetRun switches the model to a new run. All existing images are cleared;
// a nil run leaves the axes empty.
func (m *Image) SetRun(r run.Run) {
	m.current = r
	m.axes.Images.Clear()
	if r != nil {
		m.addImage(r)
	}
}

// Axes returns the axes the model draws into.
func (m *Image) Axes() *plotspec.Axes { return m.axes }

// Figure returns the model's figure.
func (m *Image) Figure() *plotspec.Figure { return m.figure }

// Field returns the configured field expression.
func (m *Image) Field() eval.Expr { return m.field }

// NeedsStreams returns the streams the expression draws from.
func (m *Image) NeedsStreams() []string {
	return append([]string(nil), m.needsStreams...)
}

func (m *Image) addImage(r run.Run) {
	transform := func(ctx context.Context) (*array.NDArray, error) {
		return m.reduce(ctx, r)
	}
	image := plotspec.NewImage(transform, r, eval.Label(m.field), nil)
	m.axes.Images.Append(image)
	m.axes.Title = m.labelMaker.Label(r, m.field)

	// Pixels center on integer coordinates. Offset the default limits by
	// half a pixel so whole pixels are visible at the plot boundary.
	if m.axes.XLimits == nil || m.axes.YLimits == nil {
		data, err := m.reduce(context.Background(), r)
		if err != nil {
			m.logger.Debug("deferring default limits, data not ready",
				zap.String("run_uid", run.UID(r)), zap.Error(err))
			return
		}
		if data.NDim() != 2 {
			m.logger.Debug("skipping default limits for non-2D data",
				zap.String("run_uid", run.UID(r)), zap.Int("ndim", data.NDim()))
			return
		}
		shape := data.Shape()
		if m.axes.XLimits == nil {
			m.axes.XLimits = &plotspec.Limits{Start: -0.5, End: float64(shape[1]) - 0.5}
		}
		if m.axes.YLimits == nil {
			m.axes.YLimits = &plotspec.Limits{Start: -0.5, End: float64(shape[0]) - 0.5}
		}
	}
}

// reduce evaluates the field and collapses it to 2D by middle-slice
// selection along the leading axis.
func (m *Image) reduce(ctx context.Context, r run.Run) (*array.NDArray, error) {
	arrays, err := m.evaluator.Resolve(ctx, []eval.Expr{m.field}, r, m.needsStreams, m.namespace)
	if err != nil {
		return nil, err
	}
	data := arrays[0]
	for data.NDim() > 2 {
		middle := data.Shape()[0] / 2
		data, err = data.SliceAxis0(middle)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
