package builders

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/eval"
	"github.com/helioworks/Spectra/pkg/plotspec"
	"github.com/helioworks/Spectra/pkg/run"
)

// Axis orientation values accepted by RasteredImage.
const (
	XPositiveRight = "right"
	XPositiveLeft  = "left"
	YPositiveUp    = "up"
	YPositiveDown  = "down"
)

var (
	// ErrBadOrientation indicates an orientation value outside
	// {"left","right"} / {"up","down"}.
	ErrBadOrientation = errors.New("invalid axis orientation")

	// ErrBadShape indicates a raster shape with a non-positive dimension.
	ErrBadShape = errors.New("raster shape dimensions must be positive")
)

// RasteredImageConfig configures a RasteredImage model.
type RasteredImageConfig struct {
	// Field is the 1D per-point expression reconstructed onto the grid.
	Field eval.Expr

	// Shape is the (rows, cols) shape of the raster.
	Shape [2]int

	// NeedsStreams lists the streams Field draws from.
	// Default: ["primary"].
	NeedsStreams []string

	// Namespace injects extra symbols into expression evaluation.
	Namespace map[string]interface{}

	// LabelMaker overrides the default title.
	LabelMaker LabelMaker

	// Axes supplies an existing axes to draw into. If nil, new axes with
	// equal aspect and a figure are created.
	Axes *plotspec.Axes

	// Evaluator resolves the expression. Default: eval.NewJSEvaluator.
	Evaluator eval.Evaluator

	// CLim sets the color limits, if any.
	CLim *[2]float64

	// CMap is the colormap name. Default: "viridis".
	CMap string

	// Extent is passed through to the renderer (left, right, bottom, top).
	Extent []float64

	// XPositive sets which way the x axis increases: "right" (default) or
	// "left".
	XPositive string

	// YPositive sets which way the y axis increases: "up" (default) or
	// "down".
	YPositive string

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

// RasteredImage reconstructs a 2D grid from a run's 1D sequential data,
// following the scan's snaking pattern.
//
// Grid cells not yet visited by a live scan hold NaN; re-invoking the
// transform on each render picks up newly acquired points.
type RasteredImage struct {
	field        eval.Expr
	shape        [2]int
	needsStreams []string
	namespace    map[string]interface{}
	labelMaker   LabelMaker
	evaluator    eval.Evaluator
	logger       *zap.Logger

	clim      *[2]float64
	cmap      string
	extent    []float64
	xPositive string
	yPositive string

	current run.Run
	axes    *plotspec.Axes
	figure  *plotspec.Figure
}

// NewRasteredImage creates the model and its figure.
func NewRasteredImage(cfg RasteredImageConfig) (*RasteredImage, error) {
	if cfg.Field == nil {
		return nil, ErrNoField
	}
	if cfg.Shape[0] <= 0 || cfg.Shape[1] <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadShape, cfg.Shape[0], cfg.Shape[1])
	}
	if cfg.XPositive == "" {
		cfg.XPositive = XPositiveRight
	}
	if cfg.XPositive != XPositiveRight && cfg.XPositive != XPositiveLeft {
		return nil, fmt.Errorf("%w: x_positive must be %q or %q, got %q",
			ErrBadOrientation, XPositiveRight, XPositiveLeft, cfg.XPositive)
	}
	if cfg.YPositive == "" {
		cfg.YPositive = YPositiveUp
	}
	if cfg.YPositive != YPositiveUp && cfg.YPositive != YPositiveDown {
		return nil, fmt.Errorf("%w: y_positive must be %q or %q, got %q",
			ErrBadOrientation, YPositiveUp, YPositiveDown, cfg.YPositive)
	}
	if cfg.CMap == "" {
		cfg.CMap = "viridis"
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

	m := &RasteredImage{
		field:        cfg.Field,
		shape:        cfg.Shape,
		needsStreams: append([]string(nil), cfg.NeedsStreams...),
		namespace:    cfg.Namespace,
		labelMaker:   cfg.LabelMaker,
		evaluator:    cfg.Evaluator,
		logger:       cfg.Logger,
		clim:         cfg.CLim,
		cmap:         cfg.CMap,
		extent:       cfg.Extent,
		xPositive:    cfg.XPositive,
		yPositive:    cfg.YPositive,
	}
	if cfg.Axes != nil {
		m.axes = cfg.Axes
	} else {
		m.axes = plotspec.NewAxes()
		m.axes.Aspect = "equal"
	}
	m.figure = plotspec.NewFigure("", m.axes)
	return m, nil
}

// Run returns the currently-viewed run, or nil.
func (m *RasteredImage) Run() run.Run { return m.current }

// SetRun switches the model to a new run. All existing images are cleared; a
// nil run leaves the axes empty.
func (m *RasteredImage) SetRun(r run.Run) {
	m.current = r
	m.axes.Images.Clear()
	if r != nil {
		m.addImage(r)
	}
}

// Axes returns the axes the model draws into.
func (m *RasteredImage) Axes() *plotspec.Axes { return m.axes }

// Figure returns the model's figure.
func (m *RasteredImage) Figure() *plotspec.Figure { return m.figure }

// Field returns the configured field expression.
func (m *RasteredImage) Field() eval.Expr { return m.field }

// Shape returns the (rows, cols) raster shape.
func (m *RasteredImage) Shape() [2]int { return m.shape }

// CMap returns the colormap name.
func (m *RasteredImage) CMap() string { return m.cmap }

// SetCMap changes the colormap on the model and every current image.
func (m *RasteredImage) SetCMap(v string) {
	m.cmap = v
	m.updateImageStyles(map[string]interface{}{"cmap": v})
}

// CLim returns the color limits, or nil.
func (m *RasteredImage) CLim() *[2]float64 { return m.clim }

// SetCLim changes the color limits on the model and every current image.
func (m *RasteredImage) SetCLim(v *[2]float64) {
	m.clim = v
	m.updateImageStyles(map[string]interface{}{"clim": v})
}

// Extent returns the renderer extent, or nil.
func (m *RasteredImage) Extent() []float64 { return m.extent }

// SetExtent changes the extent on the model and every current image.
func (m *RasteredImage) SetExtent(v []float64) {
	m.extent = v
	m.updateImageStyles(map[string]interface{}{"extent": v})
}

func (m *RasteredImage) updateImageStyles(partial map[string]interface{}) {
	for i := 0; i < m.axes.Images.Len(); i++ {
		m.axes.Images.At(i).Style().Update(partial)
	}
}

// XPositive reports which way the x axis increases, derived from the current
// limit order when limits are set.
func (m *RasteredImage) XPositive() string {
	if m.axes.XLimits != nil {
		if m.axes.XLimits.Start > m.axes.XLimits.End {
			m.xPositive = XPositiveLeft
		} else {
			m.xPositive = XPositiveRight
		}
	}
	return m.xPositive
}

// SetXPositive sets the x axis direction, reordering the current limits to
// match. Values outside {"right","left"} are rejected.
func (m *RasteredImage) SetXPositive(v string) error {
	if v != XPositiveRight && v != XPositiveLeft {
		return fmt.Errorf("%w: x_positive must be %q or %q, got %q",
			ErrBadOrientation, XPositiveRight, XPositiveLeft, v)
	}
	m.xPositive = v
	if lim := m.axes.XLimits; lim != nil {
		if (lim.Start > lim.End && v == XPositiveRight) ||
			(lim.End > lim.Start && v == XPositiveLeft) {
			m.axes.XLimits = &plotspec.Limits{Start: lim.End, End: lim.Start}
		}
	}
	return nil
}

// YPositive reports which way the y axis increases, derived from the current
// limit order when limits are set.
func (m *RasteredImage) YPositive() string {
	if m.axes.YLimits != nil {
		if m.axes.YLimits.Start > m.axes.YLimits.End {
			m.yPositive = YPositiveDown
		} else {
			m.yPositive = YPositiveUp
		}
	}
	return m.yPositive
}

// SetYPositive sets the y axis direction, reordering the current limits to
// match. Values outside {"up","down"} are rejected.
func (m *RasteredImage) SetYPositive(v string) error {
	if v != YPositiveUp && v != YPositiveDown {
		return fmt.Errorf("%w: y_positive must be %q or %q, got %q",
			ErrBadOrientation, YPositiveUp, YPositiveDown, v)
	}
	m.yPositive = v
	if lim := m.axes.YLimits; lim != nil {
		if (lim.Start > lim.End && v == YPositiveUp) ||
			(lim.End > lim.Start && v == YPositiveDown) {
			m.axes.YLimits = &plotspec.Limits{Start: lim.End, End: lim.Start}
		}
	}
	return nil
}

func (m *RasteredImage) addImage(r run.Run) {
	transform := func(ctx context.Context) (*array.NDArray, error) {
		return m.reconstruct(ctx, r)
	}
	style := map[string]interface{}{
		"cmap":   m.cmap,
		"clim":   m.clim,
		"extent": m.extent,
	}
	image := plotspec.NewImage(transform, r, eval.Label(m.field), style)
	m.axes.Images.Append(image)
	m.axes.Title = m.labelMaker.Label(r, m.field)

	// Motor metadata orders the slow axis first.
	if motors, ok := run.StartStrings(r, "motors"); ok && len(motors) >= 2 {
		m.axes.XLabel = motors[1]
		m.axes.YLabel = motors[0]
	}

	rows, cols := m.shape[0], m.shape[1]
	if mdShape, ok := run.StartInts(r, "shape"); ok && len(mdShape) >= 2 {
		rows, cols = mdShape[0], mdShape[1]
	}
	// Half-pixel offsets so whole pixels are visible at the boundary, with
	// the limit order following the configured direction.
	if m.axes.XLimits == nil {
		if m.xPositive == XPositiveRight {
			m.axes.XLimits = &plotspec.Limits{Start: -0.5, End: float64(cols) - 0.5}
		} else {
			m.axes.XLimits = &plotspec.Limits{Start: float64(cols) - 0.5, End: -0.5}
		}
	}
	if m.axes.YLimits == nil {
		if m.yPositive == YPositiveUp {
			m.axes.YLimits = &plotspec.Limits{Start: -0.5, End: float64(rows) - 0.5}
		} else {
			m.axes.YLimits = &plotspec.Limits{Start: float64(rows) - 0.5, End: -0.5}
		}
	}
}

// reconstruct places the run's 1D data onto the raster grid, mirroring
// odd rows when the scan snakes along the column axis. Cells not yet
// acquired stay NaN; surplus points beyond the grid are ignored.
func (m *RasteredImage) reconstruct(ctx context.Context, r run.Run) (*array.NDArray, error) {
	rows, cols := m.shape[0], m.shape[1]
	grid := array.NaNFilled(rows, cols)

	arrays, err := m.evaluator.Resolve(ctx, []eval.Expr{m.field}, r, m.needsStreams, m.namespace)
	if err != nil {
		return nil, err
	}
	data := arrays[0]

	snakeCols := false
	if snaking, ok := run.StartBools(r, "snaking"); ok && len(snaking) > 1 {
		snakeCols = snaking[1]
	}

	n := data.Len()
	if n > rows*cols {
		n = rows * cols
	}
	for i := 0; i < n; i++ {
		row, col, err := array.UnravelIndex(i, rows, cols)
		if err != nil {
			return nil, err
		}
		if snakeCols && row%2 == 1 {
			col = cols - 1 - col
		}
		grid.Set2(row, col, data.At1(i))
	}
	return grid, nil
}
