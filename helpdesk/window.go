package helpdesk

import (
	"context"
	"fmt"
	"time"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

// Window is a created-at range [Start, End] at whole-second precision. Neighbouring windows share a
// boundary and both ask for it, so records returned by more than one window are dropped by id.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow truncates start and end to whole seconds in the pipeline zone.
func NewWindow(start, end time.Time) Window {
	return Window{
		Start: start.In(constants.BRT).Truncate(time.Second),
		End:   end.In(constants.BRT).Truncate(time.Second),
	}
}

// LookbackWindow returns the window ending at now and starting d earlier.
func LookbackWindow(now time.Time, d time.Duration) Window {
	return NewWindow(now.Add(-d), now)
}

func (w Window) Width() time.Duration {
	return w.End.Sub(w.Start)
}

// Bisect splits w at its midpoint, truncated to whole seconds.
func (w Window) Bisect() (Window, Window) {
	mid := w.Start.Add(w.Width() / 2).Truncate(time.Second)
	return Window{Start: w.Start, End: mid}, Window{Start: mid, End: w.End}
}

func (w Window) String() string {
	return fmt.Sprintf("[%v, %v]", w.Start.Format(constants.TimeFormatWindow), w.End.Format(constants.TimeFormatWindow))
}

// SplitWindows cuts [start, end] into consecutive windows of width step. The last one may be shorter.
// A non-positive step gives the whole range as one window.
func SplitWindows(start, end time.Time, step time.Duration) []Window {
	whole := NewWindow(start, end)
	if !whole.End.After(whole.Start) {
		return nil
	}
	if step <= 0 {
		return []Window{whole}
	}
	retval := make([]Window, 0)
	for s := whole.Start; s.Before(whole.End); s = s.Add(step) {
		e := s.Add(step)
		if e.After(whole.End) {
			e = whole.End
		}
		retval = append(retval, Window{Start: s, End: e})
	}
	return retval
}

// FetchFunc fetches every record created inside a window.
type FetchFunc func(ctx context.Context, w Window) ([]stream.Record, error)

// Splitter wraps a FetchFunc. When a window fails with a 5xx it is bisected and both halves are fetched
// instead, down to MinWidth or MaxDepth levels. Windows that cannot be split, or that fail with
// anything other than a 5xx, are skipped and reported.
type Splitter struct {
	Log      logger.Logger
	Fetch    FetchFunc
	MinWidth time.Duration
	MaxDepth int
}

// SplitReport describes how a split fetch went.
type SplitReport struct {
	Attempts int      // number of windows fetched, including failed ones.
	Leaves   int      // windows that were not bisected further.
	Skipped  []Window // windows given up on.
	Records  int
}

type pendingWindow struct {
	w     Window
	depth int
}

// FetchWindow runs the split fetch over w. Results are returned in time order.
// It only returns an error if ctx is cancelled.
func (s *Splitter) FetchWindow(ctx context.Context, w Window) ([]stream.Record, SplitReport, error) {
	minWidth := s.MinWidth
	if minWidth <= 0 {
		minWidth = constants.DefaultMinWindow
	}
	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = constants.DefaultMaxSplitDepth
	}
	report := SplitReport{Skipped: make([]Window, 0)}
	retval := make([]stream.Record, 0)
	seen := make(recordIds)
	todo := []pendingWindow{{w: w}} // LIFO; the right half is pushed first so the left half is done first.
	for len(todo) > 0 {
		if err := ctx.Err(); err != nil {
			return retval, report, err
		}
		p := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		report.Attempts++
		recs, err := s.Fetch(ctx, p.w)
		if err == nil {
			report.Leaves++
			for _, r := range recs {
				if seen.keep(r) {
					retval = append(retval, r)
					report.Records++
				}
			}
			continue
		}
		if IsServerError(err) && p.w.Width() > minWidth && p.depth < maxDepth {
			left, right := p.w.Bisect()
			s.Log.Warn("server error for window ", p.w, "; splitting: ", err)
			todo = append(todo, pendingWindow{w: right, depth: p.depth + 1}, pendingWindow{w: left, depth: p.depth + 1})
			continue
		}
		report.Leaves++
		report.Skipped = append(report.Skipped, p.w)
		s.Log.Warn("skipping window ", p.w, ": ", err)
	}
	return retval, report, nil
}

// recordIds holds the ids of records already returned.
type recordIds map[string]struct{}

// keep reports whether r has not been seen before and remembers it. Records without an id are kept.
func (s recordIds) keep(r stream.Record) bool {
	id, ok := stream.JoinKey(r.GetData(constants.FieldSourceId))
	if !ok {
		return true
	}
	if _, dup := s[id]; dup {
		return false
	}
	s[id] = struct{}{}
	return true
}

// DistinctRecords returns recs without the records whose id appeared earlier in the slice.
func DistinctRecords(recs []stream.Record) []stream.Record {
	seen := make(recordIds)
	retval := make([]stream.Record, 0, len(recs))
	for _, r := range recs {
		if seen.keep(r) {
			retval = append(retval, r)
		}
	}
	return retval
}
