package builders

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/helioworks/Spectra/pkg/eval"
	"github.com/helioworks/Spectra/pkg/run"
)

// LabelMaker derives a display label for an element from its source run and
// the expression it plots.
type LabelMaker interface {
	Label(r run.Run, y eval.Expr) string
}

// LabelFunc adapts a function to the LabelMaker interface.
type LabelFunc func(r run.Run, y eval.Expr) string

// Label implements LabelMaker.
func (f LabelFunc) Label(r run.Run, y eval.Expr) string { return f(r, y) }

var titleCaser = cases.Title(language.Und)

// scanID reads the run's scan id, falling back to "?" — scan_id is produced
// by the acquisition engine but not required by the document schema.
func scanID(r run.Run) string {
	v, ok := r.Metadata().Start["scan_id"]
	if !ok {
		return "?"
	}
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int(n))
	default:
		return fmt.Sprintf("%v", n)
	}
}

// defaultLineLabelMaker builds the default RecentLines labels. With a single
// y the label is just the scan id; with several ys the plotted quantity is
// appended so lines remain distinguishable.
func defaultLineLabelMaker(multipleYs bool) LabelMaker {
	if multipleYs {
		return LabelFunc(func(r run.Run, y eval.Expr) string {
			return fmt.Sprintf("Scan %s %s", scanID(r), eval.Label(y))
		})
	}
	return LabelFunc(func(r run.Run, y eval.Expr) string {
		return fmt.Sprintf("Scan %s", scanID(r))
	})
}

// defaultImageLabelMaker builds the default Image/RasteredImage titles.
func defaultImageLabelMaker() LabelMaker {
	return LabelFunc(func(r run.Run, field eval.Expr) string {
		uid := run.UID(r)
		if len(uid) > 8 {
			uid = uid[:8]
		}
		return fmt.Sprintf("Scan ID %s   UID %s   %s", scanID(r), uid, eval.Label(field))
	})
}

// axisLabel derives an axis label from an expression, title-cased for
// display.
func axisLabel(expr eval.Expr) string {
	return titleCaser.String(eval.Label(expr))
}

// joinAxisLabels builds a y-axis label covering several expressions.
func joinAxisLabels(exprs []eval.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = axisLabel(e)
	}
	return strings.Join(parts, ", ")
}
