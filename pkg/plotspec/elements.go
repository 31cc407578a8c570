package plotspec

import (
	"context"

	"github.com/google/uuid"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/run"
)

// LineData is the result of a line transform: paired x and y arrays.
type LineData struct {
	X *array.NDArray
	Y *array.NDArray
}

// LineTransform computes a line's data at draw time. It is invoked by the
// renderer, not at element creation, so live runs are re-read on every draw.
type LineTransform func(ctx context.Context) (LineData, error)

// ImageTransform computes an image's 2D data at draw time.
type ImageTransform func(ctx context.Context) (*array.NDArray, error)

// Element is the common surface of renderable plot elements.
type Element interface {
	// ID returns the element's stable unique identity.
	ID() uuid.UUID
	// Label returns the display label.
	Label() string
	// Style returns the element's mutable style record.
	Style() *Style
	// Run returns the source run this element was derived from.
	Run() run.Run
}

// Line is a renderable 2D curve derived from one run.
type Line struct {
	id        uuid.UUID
	transform LineTransform
	source    run.Run
	label     string
	style     *Style
}

// NewLine creates a line element. The style seed may be nil.
func NewLine(transform LineTransform, source run.Run, label string, style map[string]interface{}) *Line {
	return &Line{
		id:        uuid.New(),
		transform: transform,
		source:    source,
		label:     label,
		style:     NewStyle(style),
	}
}

// ID implements Element.
func (l *Line) ID() uuid.UUID { return l.id }

// Label implements Element.
func (l *Line) Label() string { return l.label }

// Style implements Element.
func (l *Line) Style() *Style { return l.style }

// Run implements Element.
func (l *Line) Run() run.Run { return l.source }

// Data invokes the deferred transform.
func (l *Line) Data(ctx context.Context) (LineData, error) {
	return l.transform(ctx)
}

// Image is a renderable 2D raster derived from one run.
type Image struct {
	id        uuid.UUID
	transform ImageTransform
	source    run.Run
	label     string
	style     *Style
}

// NewImage creates an image element. The style seed may be nil.
func NewImage(transform ImageTransform, source run.Run, label string, style map[string]interface{}) *Image {
	return &Image{
		id:        uuid.New(),
		transform: transform,
		source:    source,
		label:     label,
		style:     NewStyle(style),
	}
}

// ID implements Element.
func (i *Image) ID() uuid.UUID { return i.id }

// Label implements Element.
func (i *Image) Label() string { return i.label }

// Style implements Element.
func (i *Image) Style() *Style { return i.style }

// Run implements Element.
func (i *Image) Run() run.Run { return i.source }

// Data invokes the deferred transform.
func (i *Image) Data(ctx context.Context) (*array.NDArray, error) {
	return i.transform(ctx)
}
