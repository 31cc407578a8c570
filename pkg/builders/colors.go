// Package builders provides live, bounded, auto-updating plot models over
// streams of experiment runs: a multi-run line plot with eviction and
// pinning (RecentLines), a single-run image reducer (Image), and a raster
// reconstructor for snaking scans (RasteredImage).
//
// Models own the run-lifecycle bookkeeping only. Rendering is external: a
// renderer observes the model's Figure/Axes and invokes element transforms at
// draw time. Expression evaluation is injected via eval.Evaluator. All model
// mutation must happen on a single goroutine (see ingest.Dispatcher).
package builders

// PendingColor marks elements of runs that are still acquiring. It resolves
// to the next palette entry when the run completes.
const PendingColor = "#000000"

// DefaultPalette is the ten-color cycle assigned to completed runs.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// colorCycle hands out palette entries cyclically. Each controller owns its
// own cycle so instances do not interfere.
type colorCycle struct {
	palette []string
	next    int
}

func newColorCycle(palette []string) *colorCycle {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &colorCycle{palette: palette}
}

// Next returns the next palette entry, wrapping around indefinitely.
func (c *colorCycle) Next() string {
	color := c.palette[c.next%len(c.palette)]
	c.next++
	return color
}
