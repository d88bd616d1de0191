package helpdesk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	"github.com/relloyd/deskpipe/stream"
)

func TestSplitter_BisectsDownToMinWidth(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	w := NewWindow(start, start.Add(4*time.Hour))
	seen := make([]Window, 0)
	s := &Splitter{
		Log:      log,
		MinWidth: time.Hour,
		Fetch: func(ctx context.Context, w Window) ([]stream.Record, error) {
			seen = append(seen, w)
			return nil, &StatusError{Code: 500}
		},
	}
	got, report, err := s.FetchWindow(context.Background(), w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records; got %v", len(got))
	}
	for _, sw := range seen {
		if sw.Width() < time.Hour {
			t.Fatalf("window %v is narrower than the minimum width", sw)
		}
	}
	if report.Leaves != 4 || len(report.Skipped) != 4 || report.Attempts != 7 {
		t.Fatalf("expected 4 skipped leaves in 7 attempts; got %+v", report)
	}
	// Leaves are visited in time order.
	for i, sw := range report.Skipped {
		if !sw.Start.Equal(start.Add(time.Duration(i) * time.Hour)) {
			t.Fatalf("unexpected leaf order at %v: %v", i, sw)
		}
	}
}

func TestSplitter_ConcatenatesHalvesInOrder(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	w := NewWindow(start, start.Add(2*time.Hour))
	s := &Splitter{
		Log:      log,
		MinWidth: time.Hour,
		Fetch: func(ctx context.Context, sw Window) ([]stream.Record, error) {
			if sw.Width() > time.Hour {
				return nil, &StatusError{Code: 503}
			}
			r := stream.NewRecord()
			r.SetData("start", sw.Start.Hour())
			return []stream.Record{r}, nil
		},
	}
	got, report, err := s.FetchWindow(context.Background(), w)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].GetData("start") != 0 || got[1].GetData("start") != 1 {
		t.Fatalf("unexpected records: %v", got)
	}
	if len(report.Skipped) != 0 || report.Records != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSplitter_SkipsNonServerErrors(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	calls := 0
	s := &Splitter{
		Log:      log,
		MinWidth: time.Hour,
		Fetch: func(ctx context.Context, sw Window) ([]stream.Record, error) {
			calls++
			return nil, errors.New("connection reset")
		},
	}
	_, report, err := s.FetchWindow(context.Background(), NewWindow(start, start.Add(8*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || len(report.Skipped) != 1 {
		t.Fatalf("expected a single skipped window; got %v calls, %+v", calls, report)
	}
}

func TestSplitter_MaxDepth(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	s := &Splitter{
		Log:      log,
		MinWidth: time.Second,
		MaxDepth: 2,
		Fetch: func(ctx context.Context, sw Window) ([]stream.Record, error) {
			return nil, &StatusError{Code: 500}
		},
	}
	_, report, _ := s.FetchWindow(context.Background(), NewWindow(start, start.Add(24*time.Hour)))
	if len(report.Skipped) != 4 {
		t.Fatalf("expected depth 2 to give 4 leaves; got %+v", report)
	}
}

func TestSplitWindows(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	got := SplitWindows(start, start.Add(5*time.Hour), 2*time.Hour)
	if len(got) != 3 {
		t.Fatalf("expected 3 windows; got %v", got)
	}
	if got[2].Width() != time.Hour || !got[2].End.Equal(start.Add(5*time.Hour)) {
		t.Fatalf("unexpected last window %v", got[2])
	}
	if len(SplitWindows(start, start, time.Hour)) != 0 {
		t.Fatal("expected no windows for an empty range")
	}
	if len(SplitWindows(start, start.Add(time.Hour), 0)) != 1 {
		t.Fatal("expected a single window for a zero step")
	}
}

func TestWindow_String(t *testing.T) {
	start := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	w := NewWindow(start, start.Add(time.Hour+500*time.Millisecond))
	expected := "[2025-03-01T10:00:00-03:00, 2025-03-01T11:00:00-03:00]"
	if w.String() != expected {
		t.Fatalf("expected %v; got %v", expected, w.String())
	}
}

// createdAtFetch returns the records created inside sw, boundaries included, the way the API filters.
func createdAtFetch(created map[string]time.Time) FetchFunc {
	return func(ctx context.Context, sw Window) ([]stream.Record, error) {
		if sw.Width() > 2*time.Hour {
			return nil, &StatusError{Code: 500}
		}
		retval := make([]stream.Record, 0)
		for _, id := range []string{"t-early", "t-mid", "t-late"} {
			at, ok := created[id]
			if !ok || at.Before(sw.Start) || at.After(sw.End) {
				continue
			}
			r := stream.NewRecord()
			r.SetData(constants.FieldSourceId, id)
			retval = append(retval, r)
		}
		return retval, nil
	}
}

func TestSplitter_RecordOnBisectBoundaryIsKeptOnce(t *testing.T) {
	log := logger.NewLogger("deskpipe", "info", true)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	s := &Splitter{
		Log:      log,
		MinWidth: time.Hour,
		Fetch: createdAtFetch(map[string]time.Time{
			"t-early": start.Add(time.Hour),
			"t-mid":   start.Add(2 * time.Hour),
			"t-late":  start.Add(3 * time.Hour),
		}),
	}
	got, report, err := s.FetchWindow(context.Background(), NewWindow(start, start.Add(4*time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	if report.Leaves != 2 || report.Records != 3 {
		t.Fatalf("expected 3 records from 2 leaves; got %+v", report)
	}
	ids := make([]interface{}, 0)
	for _, r := range got {
		ids = append(ids, r.GetData(constants.FieldSourceId))
	}
	if len(ids) != 3 || ids[0] != "t-early" || ids[1] != "t-mid" || ids[2] != "t-late" {
		t.Fatalf("expected each record once in time order; got %v", ids)
	}
}

func TestDistinctRecords_SharedStepBoundary(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, constants.BRT)
	fetch := createdAtFetch(map[string]time.Time{"t-mid": start.Add(2 * time.Hour)})
	all := make([]stream.Record, 0)
	for _, w := range SplitWindows(start, start.Add(4*time.Hour), 2*time.Hour) {
		recs, err := fetch(context.Background(), w)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, recs...)
	}
	if len(all) != 2 {
		t.Fatalf("expected both windows to return the boundary record; got %v", len(all))
	}
	noId := stream.NewRecord()
	got := DistinctRecords(append(all, noId, noId))
	if len(got) != 3 || got[0].GetData(constants.FieldSourceId) != "t-mid" {
		t.Fatalf("expected one boundary record and both records without an id; got %v", got)
	}
}
