// Package array provides a small dense N-dimensional float64 array used by
// the plot transforms. It covers only what the models need: shape inspection,
// leading-axis slicing, element access for 1D/2D data, and NaN fill for
// not-yet-acquired raster points.
package array

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch indicates that the data length does not match the product
// of the requested shape.
var ErrShapeMismatch = errors.New("data length does not match shape")

// NDArray is a dense row-major array of float64 values.
type NDArray struct {
	data  []float64
	shape []int
}

// New creates an array from data with the given shape. The data slice is
// retained, not copied.
func New(data []float64, shape ...int) (*NDArray, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("invalid dimension %d: %w", d, ErrShapeMismatch)
		}
		n *= d
	}
	if len(shape) == 0 {
		shape = []int{len(data)}
		n = len(data)
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d values, have %d: %w", shape, n, len(data), ErrShapeMismatch)
	}
	return &NDArray{data: data, shape: shape}, nil
}

// FromSlice creates a 1D array over the given values without copying.
func FromSlice(values []float64) *NDArray {
	return &NDArray{data: values, shape: []int{len(values)}}
}

// Filled creates an array of the given shape with every element set to value.
func Filled(value float64, shape ...int) *NDArray {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = value
	}
	return &NDArray{data: data, shape: append([]int(nil), shape...)}
}

// NaNFilled creates an array of the given shape filled with NaN, the
// "no data yet" sentinel used for partially acquired rasters.
func NaNFilled(shape ...int) *NDArray {
	return Filled(math.NaN(), shape...)
}

// NDim returns the number of dimensions.
func (a *NDArray) NDim() int { return len(a.shape) }

// Shape returns the array's dimensions. The returned slice must not be
// mutated.
func (a *NDArray) Shape() []int { return a.shape }

// Len returns the total number of elements.
func (a *NDArray) Len() int { return len(a.data) }

// Data returns the underlying row-major storage. The returned slice must not
// be resized.
func (a *NDArray) Data() []float64 { return a.data }

// At1 returns the i-th element of a 1D array.
func (a *NDArray) At1(i int) float64 { return a.data[i] }

// At2 returns the element at (row, col) of a 2D array.
func (a *NDArray) At2(row, col int) float64 {
	return a.data[row*a.shape[1]+col]
}

// Set2 writes the element at (row, col) of a 2D array.
func (a *NDArray) Set2(row, col int, v float64) {
	a.data[row*a.shape[1]+col] = v
}

// SliceAxis0 returns the i-th sub-array along the leading axis, sharing
// storage with the receiver. The result has one fewer dimension.
func (a *NDArray) SliceAxis0(i int) (*NDArray, error) {
	if a.NDim() < 2 {
		return nil, fmt.Errorf("cannot slice %dD array along axis 0", a.NDim())
	}
	if i < 0 || i >= a.shape[0] {
		return nil, fmt.Errorf("index %d out of range for axis of length %d", i, a.shape[0])
	}
	stride := 1
	for _, d := range a.shape[1:] {
		stride *= d
	}
	return &NDArray{
		data:  a.data[i*stride : (i+1)*stride],
		shape: append([]int(nil), a.shape[1:]...),
	}, nil
}

// IsNaN reports whether the i-th element (row-major) is the NaN sentinel.
func (a *NDArray) IsNaN(i int) bool { return math.IsNaN(a.data[i]) }

// UnravelIndex converts a linear row-major index into a (row, col) position
// for a grid of the given dimensions.
func UnravelIndex(i, rows, cols int) (row, col int, err error) {
	if rows <= 0 || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid grid %dx%d", rows, cols)
	}
	if i < 0 || i >= rows*cols {
		return 0, 0, fmt.Errorf("index %d out of range for %dx%d grid", i, rows, cols)
	}
	return i / cols, i % cols, nil
}
