package builders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helioworks/Spectra/pkg/eval"
	"github.com/helioworks/Spectra/pkg/events"
	"github.com/helioworks/Spectra/pkg/plotspec"
	"github.com/helioworks/Spectra/pkg/run"
)

var (
	// ErrNoYs indicates that a RecentLines was configured without y
	// expressions.
	ErrNoYs = errors.New("at least one y expression is required")

	// ErrNoX indicates that a RecentLines was configured without an x
	// expression.
	ErrNoX = errors.New("x expression is required")

	// ErrNegativeMaxRuns indicates an invalid capacity.
	ErrNegativeMaxRuns = errors.New("max runs cannot be negative")
)

// LinesConfig configures a RecentLines model.
type LinesConfig struct {
	// MaxRuns is the number of unpinned runs shown at once. It may be
	// changed later with SetMaxRuns.
	MaxRuns int

	// X is the field expression plotted on the x axis.
	X eval.Expr

	// Ys are the field expressions plotted on the y axis; one line is
	// created per y per run.
	Ys []eval.Expr

	// NeedsStreams lists the streams X and Ys draw from.
	// Default: ["primary"].
	NeedsStreams []string

	// Namespace injects extra symbols into expression evaluation.
	Namespace map[string]interface{}

	// LabelMaker overrides the default scan-id labels.
	LabelMaker LabelMaker

	// Axes supplies an existing axes to draw into. If nil, axes and a
	// figure are created with labels derived from X and Ys.
	Axes *plotspec.Axes

	// Evaluator resolves the expressions. Default: eval.NewJSEvaluator.
	Evaluator eval.Evaluator

	// Palette overrides the default ten-color cycle.
	Palette []string

	// Logger is optional; nil disables logging.
	Logger *zap.Logger
}

// RecentLines plots y vs x for the most recent MaxRuns runs.
//
// Runs are admitted with AddRun and leave via DiscardRun or FIFO eviction
// when capacity is exceeded. Pinned runs are exempt from eviction. A run
// whose needed streams have not arrived yet is held back and activated by its
// first satisfying new-stream notification. Live runs draw in PendingColor
// and flip to the next palette color when they complete.
//
// RecentLines is not safe for concurrent use; drive it from one goroutine.
type RecentLines struct {
	maxRuns      int
	x            eval.Expr
	ys           []eval.Expr
	needsStreams []string
	namespace    map[string]interface{}
	labelMaker   LabelMaker
	evaluator    eval.Evaluator
	logger       *zap.Logger

	// Runs is the bounded registry backing the model. Callers may observe
	// it but must mutate only through AddRun/DiscardRun.
	Runs *run.List

	axes   *plotspec.Axes
	figure *plotspec.Figure

	pinned      map[string]struct{}
	colors      *colorCycle
	runsToLines map[string]map[uuid.UUID]struct{}

	// Pending one-shot subscriptions, keyed by run uid, so that discarding
	// a run cancels its callbacks instead of leaving them dangling.
	streamTokens     map[string]events.Token
	completionTokens map[string]events.Token
}

// NewRecentLines creates the model and its figure.
func NewRecentLines(cfg LinesConfig) (*RecentLines, error) {
	if cfg.X == nil {
		return nil, ErrNoX
	}
	if len(cfg.Ys) == 0 {
		return nil, ErrNoYs
	}
	if cfg.MaxRuns < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeMaxRuns, cfg.MaxRuns)
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
		cfg.LabelMaker = defaultLineLabelMaker(len(cfg.Ys) > 1)
	}

	m := &RecentLines{
		maxRuns:          cfg.MaxRuns,
		x:                cfg.X,
		ys:               append([]eval.Expr(nil), cfg.Ys...),
		needsStreams:     append([]string(nil), cfg.NeedsStreams...),
		namespace:        cfg.Namespace,
		labelMaker:       cfg.LabelMaker,
		evaluator:        cfg.Evaluator,
		logger:           cfg.Logger,
		Runs:             run.NewList(),
		pinned:           make(map[string]struct{}),
		colors:           newColorCycle(cfg.Palette),
		runsToLines:      make(map[string]map[uuid.UUID]struct{}),
		streamTokens:     make(map[string]events.Token),
		completionTokens: make(map[string]events.Token),
	}

	if cfg.Axes != nil {
		m.axes = cfg.Axes
		m.figure = plotspec.NewFigure("", m.axes)
	} else {
		m.axes = plotspec.NewAxes()
		m.axes.XLabel = axisLabel(m.x)
		m.axes.YLabel = joinAxisLabels(m.ys)
		m.figure = plotspec.NewFigure(
			fmt.Sprintf("%s v %s", m.axes.YLabel, m.axes.XLabel), m.axes)
	}

	m.Runs.Added.Subscribe(m.onRunAdded)
	m.Runs.Removed.Subscribe(m.onRunRemoved)
	return m, nil
}

// AddRun admits a run, optionally pinned. Adding a run that is already
// present is a no-op (though a true pinned flag still takes effect on the
// next eviction pass).
func (m *RecentLines) AddRun(r run.Run, pinned bool) {
	if r == nil {
		return
	}
	if pinned {
		m.pinned[run.UID(r)] = struct{}{}
	}
	m.Runs.Append(r)
}

// DiscardRun removes a run, pinned or not. Absent runs are ignored.
func (m *RecentLines) DiscardRun(r run.Run) {
	if r == nil {
		return
	}
	m.Runs.Remove(r)
}

// MaxRuns returns the current capacity for unpinned runs.
func (m *RecentLines) MaxRuns() int { return m.maxRuns }

// SetMaxRuns changes the capacity and evicts immediately if the new value is
// exceeded. Growing the capacity never restores evicted runs.
func (m *RecentLines) SetMaxRuns(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeMaxRuns, n)
	}
	m.maxRuns = n
	m.cullRuns()
	return nil
}

// X returns the configured x expression.
func (m *RecentLines) X() eval.Expr { return m.x }

// Ys returns the configured y expressions.
func (m *RecentLines) Ys() []eval.Expr { return append([]eval.Expr(nil), m.ys...) }

// NeedsStreams returns the streams the expressions draw from.
func (m *RecentLines) NeedsStreams() []string {
	return append([]string(nil), m.needsStreams...)
}

// Pinned returns the uids currently exempt from eviction.
func (m *RecentLines) Pinned() map[string]struct{} {
	out := make(map[string]struct{}, len(m.pinned))
	for uid := range m.pinned {
		out[uid] = struct{}{}
	}
	return out
}

// Axes returns the axes the model draws into.
func (m *RecentLines) Axes() *plotspec.Axes { return m.axes }

// Figure returns the model's figure.
func (m *RecentLines) Figure() *plotspec.Figure { return m.figure }

// onRunAdded activates the run now if its streams are ready, otherwise
// parks it behind a new-stream subscription.
func (m *RecentLines) onRunAdded(payload interface{}) {
	ev, ok := payload.(run.ListEvent)
	if !ok {
		return
	}
	r := ev.Run
	if run.HasStreams(r, m.needsStreams) {
		m.addLines(r)
		return
	}
	uid := run.UID(r)
	m.streamTokens[uid] = r.Events().NewStream.Subscribe(m.onNewStream)
	m.logger.Debug("run awaiting streams",
		zap.String("run_uid", uid),
		zap.Strings("needs", m.needsStreams))
}

// onNewStream re-checks stream availability each time the run gains a
// stream, activating it on the first satisfying notification.
func (m *RecentLines) onNewStream(payload interface{}) {
	ev, ok := payload.(run.StreamAdded)
	if !ok {
		return
	}
	r := ev.Run
	uid := run.UID(r)
	if _, tracked := m.streamTokens[uid]; !tracked {
		// Run discarded before the stream arrived; nothing to do.
		return
	}
	if !run.HasStreams(r, m.needsStreams) {
		return
	}
	m.addLines(r)
	r.Events().NewStream.Unsubscribe(m.streamTokens[uid])
	delete(m.streamTokens, uid)
}

// addLines creates one line per y expression for the run.
func (m *RecentLines) addLines(r run.Run) {
	// Make room before drawing the new run. At zero capacity the eviction
	// can claim the run itself; drawing it then would orphan its lines.
	m.cullRuns()
	if !m.Runs.Contains(r) {
		return
	}

	uid := run.UID(r)
	live := run.IsLiveAndNotCompleted(r)
	_, isPinned := m.pinned[uid]

	for _, y := range m.ys {
		label := m.labelMaker.Label(r, y)

		var color string
		if live {
			// The run stands out until it completes, then flips to a
			// palette color.
			color = PendingColor
		} else {
			color = m.colors.Next()
		}
		style := map[string]interface{}{"color": color}
		if isPinned {
			style["linestyle"] = "dashed"
			label += " (pinned)"
		}

		y := y
		transform := func(ctx context.Context) (plotspec.LineData, error) {
			arrays, err := m.evaluator.Resolve(ctx, []eval.Expr{m.x, y}, r, m.needsStreams, m.namespace)
			if err != nil {
				return plotspec.LineData{}, err
			}
			return plotspec.LineData{X: arrays[0], Y: arrays[1]}, nil
		}

		line := plotspec.NewLine(transform, r, label, style)
		if m.runsToLines[uid] == nil {
			m.runsToLines[uid] = make(map[uuid.UUID]struct{})
		}
		m.runsToLines[uid][line.ID()] = struct{}{}
		m.axes.Lines.Append(line)
	}

	if live {
		if _, subscribed := m.completionTokens[uid]; !subscribed {
			m.completionTokens[uid] = r.Events().Completed.Once(m.onRunComplete)
		}
	}

	m.logger.Debug("lines added",
		zap.String("run_uid", uid),
		zap.Int("count", len(m.ys)),
		zap.Bool("pinned", isPinned),
		zap.Bool("live", live))
}

// cullRuns evicts from the front of the registry, skipping pinned runs,
// until the capacity invariant holds. If every run is pinned the registry may
// exceed the nominal capacity; pins are a hard override.
func (m *RecentLines) cullRuns() {
	i := 0
	for m.Runs.Len() > m.maxRuns+len(m.pinned) {
		for {
			if _, isPinned := m.pinned[run.UID(m.Runs.At(i))]; !isPinned {
				break
			}
			i++
		}
		m.Runs.Pop(i)
	}
}

// onRunRemoved tears down a run's bookkeeping: pin entry, pending
// subscriptions, index entry, and its lines (tolerating external removal).
func (m *RecentLines) onRunRemoved(payload interface{}) {
	ev, ok := payload.(run.ListEvent)
	if !ok {
		return
	}
	r := ev.Run
	uid := run.UID(r)

	delete(m.pinned, uid)

	if tok, ok := m.streamTokens[uid]; ok {
		r.Events().NewStream.Unsubscribe(tok)
		delete(m.streamTokens, uid)
	}
	if tok, ok := m.completionTokens[uid]; ok {
		r.Events().Completed.Unsubscribe(tok)
		delete(m.completionTokens, uid)
	}

	lineIDs, ok := m.runsToLines[uid]
	if !ok {
		return
	}
	delete(m.runsToLines, uid)
	for id := range lineIDs {
		// A line already removed from the axes externally is fine.
		m.axes.Lines.Remove(id)
	}

	m.logger.Debug("run removed", zap.String("run_uid", uid))
}

// onRunComplete flips the run's lines from the pending sentinel to the next
// palette color. The palette advances once per completion; lines of the same
// run share their color.
func (m *RecentLines) onRunComplete(payload interface{}) {
	ev, ok := payload.(run.Completed)
	if !ok {
		return
	}
	uid := run.UID(ev.Run)
	delete(m.completionTokens, uid)

	lineIDs, ok := m.runsToLines[uid]
	if !ok {
		// The run was removed before it completed.
		return
	}
	color := m.colors.Next()
	for id := range lineIDs {
		element, present := m.axes.Lines.ByID(id)
		if !present {
			// Removed from the axes externally.
			continue
		}
		element.Style().Update(map[string]interface{}{"color": color})
	}

	m.logger.Debug("run completed, color resolved",
		zap.String("run_uid", uid),
		zap.String("color", color))
}
