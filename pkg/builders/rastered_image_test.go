package builders

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/plotspec"
	"github.com/helioworks/Spectra/pkg/run"
)

func rasterRun(t *testing.T, snaking []interface{}, points []float64) *run.InMemoryRun {
	t.Helper()
	r, err := run.NewInMemoryRun(map[string]interface{}{
		"uid":     "raster-run-uid-01",
		"scan_id": 42,
		"motors":  []interface{}{"y", "x"},
		"shape":   []interface{}{float64(2), float64(3)},
		"snaking": snaking,
	})
	require.NoError(t, err)
	s := r.AddStream("primary", []string{"intensity"})
	s.SetColumn("intensity", points)
	return r
}

func newRaster(t *testing.T, cfg RasteredImageConfig) *RasteredImage {
	t.Helper()
	if cfg.Field == nil {
		cfg.Field = "intensity"
	}
	if cfg.Shape == [2]int{} {
		cfg.Shape = [2]int{2, 3}
	}
	m, err := NewRasteredImage(cfg)
	require.NoError(t, err)
	return m
}

func rasterGrid(t *testing.T, m *RasteredImage) *array.NDArray {
	t.Helper()
	require.Equal(t, 1, m.Axes().Images.Len())
	img := m.Axes().Images.At(0).(*plotspec.Image)
	grid, err := img.Data(context.Background())
	require.NoError(t, err)
	return grid
}

func TestRasteredImageValidation(t *testing.T) {
	_, err := NewRasteredImage(RasteredImageConfig{Shape: [2]int{2, 3}})
	assert.ErrorIs(t, err, ErrNoField)

	_, err = NewRasteredImage(RasteredImageConfig{Field: "intensity"})
	assert.ErrorIs(t, err, ErrBadShape)

	_, err = NewRasteredImage(RasteredImageConfig{
		Field: "intensity", Shape: [2]int{2, 3}, XPositive: "sideways",
	})
	assert.ErrorIs(t, err, ErrBadOrientation)

	_, err = NewRasteredImage(RasteredImageConfig{
		Field: "intensity", Shape: [2]int{2, 3}, YPositive: "diagonal",
	})
	assert.ErrorIs(t, err, ErrBadOrientation)
}

func TestSnakingRoundTrip(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0, 1, 2, 3, 4, 5}))

	grid := rasterGrid(t, m)
	// Row 1 is reversed by the snaking scan direction.
	want := [][]float64{{0, 1, 2}, {5, 4, 3}}
	for row := range want {
		for col := range want[row] {
			assert.Equal(t, want[row][col], grid.At2(row, col), "cell (%d,%d)", row, col)
		}
	}
}

func TestNonSnakingRoundTrip(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, false}, []float64{0, 1, 2, 3, 4, 5}))

	grid := rasterGrid(t, m)
	want := [][]float64{{0, 1, 2}, {3, 4, 5}}
	for row := range want {
		for col := range want[row] {
			assert.Equal(t, want[row][col], grid.At2(row, col), "cell (%d,%d)", row, col)
		}
	}
}

func TestPartialRasterLeavesSentinelCells(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	r := rasterRun(t, []interface{}{false, false}, nil)
	s, _ := r.Stream("primary")
	s.(*run.MemoryStream).SetColumn("intensity", []float64{0, 1, 2, 3})
	m.SetRun(r)

	grid := rasterGrid(t, m)
	assert.Equal(t, 3.0, grid.At2(1, 0))
	assert.True(t, math.IsNaN(grid.At2(1, 1)))
	assert.True(t, math.IsNaN(grid.At2(1, 2)))

	// More points arrive; re-invoking the transform fills the holes
	// without disturbing existing cells.
	s.(*run.MemoryStream).SetColumn("intensity", []float64{0, 1, 2, 3, 4})
	grid = rasterGrid(t, m)
	assert.Equal(t, 3.0, grid.At2(1, 0))
	assert.Equal(t, 4.0, grid.At2(1, 1))
	assert.True(t, math.IsNaN(grid.At2(1, 2)))
}

func TestSurplusPointsIgnored(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, false}, []float64{0, 1, 2, 3, 4, 5, 6, 7}))

	grid := rasterGrid(t, m)
	assert.Equal(t, 5.0, grid.At2(1, 2))
}

func TestAxisLabelsFromMotors(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0}))

	assert.Equal(t, "x", m.Axes().XLabel)
	assert.Equal(t, "y", m.Axes().YLabel)
	assert.Equal(t, "equal", m.Axes().Aspect)
}

func TestDefaultLimitsFollowOrientation(t *testing.T) {
	testCases := []struct {
		name  string
		xPos  string
		yPos  string
		xWant plotspec.Limits
		yWant plotspec.Limits
	}{
		{
			name: "right up", xPos: XPositiveRight, yPos: YPositiveUp,
			xWant: plotspec.Limits{Start: -0.5, End: 2.5},
			yWant: plotspec.Limits{Start: -0.5, End: 1.5},
		},
		{
			name: "left down", xPos: XPositiveLeft, yPos: YPositiveDown,
			xWant: plotspec.Limits{Start: 2.5, End: -0.5},
			yWant: plotspec.Limits{Start: 1.5, End: -0.5},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newRaster(t, RasteredImageConfig{XPositive: tc.xPos, YPositive: tc.yPos})
			m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0}))

			require.NotNil(t, m.Axes().XLimits)
			require.NotNil(t, m.Axes().YLimits)
			assert.Equal(t, tc.xWant, *m.Axes().XLimits)
			assert.Equal(t, tc.yWant, *m.Axes().YLimits)
		})
	}
}

func TestOrientationSettersReorderLimits(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0}))

	require.Equal(t, XPositiveRight, m.XPositive())
	require.NoError(t, m.SetXPositive(XPositiveLeft))
	assert.Equal(t, plotspec.Limits{Start: 2.5, End: -0.5}, *m.Axes().XLimits)
	assert.Equal(t, XPositiveLeft, m.XPositive())

	// Setting the same direction again leaves the limits alone.
	require.NoError(t, m.SetXPositive(XPositiveLeft))
	assert.Equal(t, plotspec.Limits{Start: 2.5, End: -0.5}, *m.Axes().XLimits)

	require.Equal(t, YPositiveUp, m.YPositive())
	require.NoError(t, m.SetYPositive(YPositiveDown))
	assert.Equal(t, plotspec.Limits{Start: 1.5, End: -0.5}, *m.Axes().YLimits)
	assert.Equal(t, YPositiveDown, m.YPositive())

	assert.ErrorIs(t, m.SetXPositive("sideways"), ErrBadOrientation)
	assert.ErrorIs(t, m.SetYPositive("diagonal"), ErrBadOrientation)
}

func TestStyleSettersPropagateToImages(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0}))

	img := m.Axes().Images.At(0)
	cmap, _ := img.Style().GetString("cmap")
	assert.Equal(t, "viridis", cmap)

	m.SetCMap("plasma")
	cmap, _ = img.Style().GetString("cmap")
	assert.Equal(t, "plasma", cmap)
	assert.Equal(t, "plasma", m.CMap())

	clim := &[2]float64{0, 100}
	m.SetCLim(clim)
	got, _ := img.Style().Get("clim")
	assert.Equal(t, clim, got)

	extent := []float64{0, 1, 0, 1}
	m.SetExtent(extent)
	gotExtent, _ := img.Style().Get("extent")
	assert.Equal(t, extent, gotExtent)
}

func TestRasterTitle(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(rasterRun(t, []interface{}{false, true}, []float64{0}))

	assert.Equal(t, "Scan ID 42   UID raster-r   intensity", m.Axes().Title)
}

func TestMissingSnakingMetadataDefaultsToRowMajor(t *testing.T) {
	r, err := run.NewInMemoryRun(map[string]interface{}{"uid": "no-snaking"})
	require.NoError(t, err)
	s := r.AddStream("primary", []string{"intensity"})
	s.SetColumn("intensity", []float64{0, 1, 2, 3, 4, 5})

	m := newRaster(t, RasteredImageConfig{})
	m.SetRun(r)

	grid := rasterGrid(t, m)
	assert.Equal(t, 3.0, grid.At2(1, 0))
	assert.Equal(t, 5.0, grid.At2(1, 2))
}

func TestResolveFailureSurfacesFromTransform(t *testing.T) {
	m := newRaster(t, RasteredImageConfig{Field: "no_such_field + 1"})
	m.SetRun(rasterRun(t, []interface{}{false, false}, []float64{0}))

	img := m.Axes().Images.At(0).(*plotspec.Image)
	_, err := img.Data(context.Background())
	assert.Error(t, err)
}
