package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/a3s-lab/metasearch/internal/engine"
	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
	"github.com/a3s-lab/metasearch/internal/searcherrors"
)

// fakeEngine is a test double implementing engine.Engine directly, with no
// fetcher/parsing layer involved.
type fakeEngine struct {
	cfg     engine.Config
	results []result.RawResult
	err     error
	delay   time.Duration
	panics  bool
}

func (f *fakeEngine) Config() engine.Config { return f.cfg }

func (f *fakeEngine) Search(ctx context.Context, q query.SearchQuery) ([]result.RawResult, error) {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newFakeEngine(name, shortcut string, results []result.RawResult) *fakeEngine {
	cfg := engine.DefaultConfig(name, shortcut)
	return &fakeEngine{cfg: cfg, results: results}
}

func TestSearch_NoEnginesReturnsError(t *testing.T) {
	o := New()
	_, err := o.Search(context.Background(), query.New("test"))
	if err != searcherrors.ErrNoEngines {
		t.Fatalf("expected ErrNoEngines, got %v", err)
	}
}

func TestSearch_EmptyQueryReturnsError(t *testing.T) {
	o := New()
	o.AddEngine(newFakeEngine("A", "a", nil))
	_, err := o.Search(context.Background(), query.New("   "))
	if err != searcherrors.ErrInvalidQuery {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestSearch_AggregatesAcrossEngines(t *testing.T) {
	o := New()
	o.AddEngine(newFakeEngine("A", "a", []result.RawResult{
		{URL: "https://example.com/1", Title: "One", ResultType: result.TypeWeb},
	}))
	o.AddEngine(newFakeEngine("B", "b", []result.RawResult{
		{URL: "https://example.com/2", Title: "Two", ResultType: result.TypeWeb},
	}))

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("expected 2 merged results, got %d", res.Count)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
}

func TestSearch_CategoryFilterExcludesEngine(t *testing.T) {
	o := New()
	imagesOnly := newFakeEngine("Images", "img", []result.RawResult{{URL: "https://example.com/i", Title: "Img"}})
	imagesOnly.cfg.Categories = []query.Category{query.CategoryImages}
	o.AddEngine(imagesOnly)
	o.AddEngine(newFakeEngine("General", "gen", []result.RawResult{{URL: "https://example.com/g", Title: "Gen"}}))

	q := query.New("test") // defaults to {general}
	res, err := o.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected only the general engine's result, got %d", res.Count)
	}
}

func TestSearch_ExplicitEngineListOverridesCategory(t *testing.T) {
	o := New()
	imagesOnly := newFakeEngine("Images", "img", []result.RawResult{{URL: "https://example.com/i", Title: "Img"}})
	imagesOnly.cfg.Categories = []query.Category{query.CategoryImages}
	o.AddEngine(imagesOnly)
	o.AddEngine(newFakeEngine("General", "gen", []result.RawResult{{URL: "https://example.com/g", Title: "Gen"}}))

	q := query.New("test")
	q.Engines = []string{"img"}
	res, err := o.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected 1 result from explicitly named engine, got %d", res.Count)
	}
}

func TestSearch_DisabledEngineIsExcluded(t *testing.T) {
	o := New()
	disabled := newFakeEngine("Disabled", "dis", []result.RawResult{{URL: "https://example.com/d", Title: "D"}})
	disabled.cfg.Enabled = false
	o.AddEngine(disabled)

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Count != 0 {
		t.Fatalf("expected disabled engine to be excluded, got %d results", res.Count)
	}
}

func TestSearch_TimeoutProducesErrorEntryWithoutFailingWholeSearch(t *testing.T) {
	o := New()
	slow := newFakeEngine("Slow", "slow", nil)
	slow.cfg.Timeout = 0.05 // 50ms
	slow.delay = 500 * time.Millisecond
	o.AddEngine(slow)
	o.AddEngine(newFakeEngine("Fast", "fast", []result.RawResult{{URL: "https://example.com/f", Title: "F"}}))

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected the fast engine's result to survive, got %d", res.Count)
	}
	msg, ok := res.Errors["Slow"]
	if !ok {
		t.Fatal("expected an errors entry for the slow engine")
	}
	if msg != "timeout" {
		t.Fatalf("expected timeout message, got %q", msg)
	}
}

func TestSearch_EngineErrorProducesErrorEntry(t *testing.T) {
	o := New()
	broken := newFakeEngine("Broken", "broke", nil)
	broken.err = searcherrors.NewOther("boom")
	o.AddEngine(broken)

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, ok := res.Errors["Broken"]; !ok {
		t.Fatal("expected an errors entry for the broken engine")
	}
}

func TestSearch_PanicIsRecoveredIntoErrorEntry(t *testing.T) {
	o := New()
	crasher := newFakeEngine("Crasher", "crash", nil)
	crasher.panics = true
	o.AddEngine(crasher)
	o.AddEngine(newFakeEngine("Fine", "fine", []result.RawResult{{URL: "https://example.com/ok", Title: "OK"}}))

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search should not fail due to one engine panicking: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected the healthy engine's result to survive, got %d", res.Count)
	}
	if _, ok := res.Errors["Crasher"]; !ok {
		t.Fatal("expected the panic to be recorded as an errors entry")
	}
}

func TestSearch_SuspendedEngineSkippedSilently(t *testing.T) {
	o := New()
	suspended := newFakeEngine("Suspended", "susp", nil)
	suspended.err = &searcherrors.EngineSuspendedError{Engine: "Suspended"}
	o.AddEngine(suspended)
	o.AddEngine(newFakeEngine("Fine", "fine", []result.RawResult{{URL: "https://example.com/ok", Title: "OK"}}))

	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, ok := res.Errors["Suspended"]; ok {
		t.Fatal("expected a suspended engine to produce no errors-map entry")
	}
}

func TestSearch_DurationIsRecorded(t *testing.T) {
	o := New()
	o.AddEngine(newFakeEngine("A", "a", nil))
	res, err := o.Search(context.Background(), query.New("test"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.DurationMs < 0 {
		t.Fatalf("expected non-negative duration, got %d", res.DurationMs)
	}
}

func TestSearch_RecordsPerEngineStats(t *testing.T) {
	o := New()
	o.AddEngine(newFakeEngine("Good", "good", []result.RawResult{{URL: "https://example.com/x", Title: "X"}}))
	failing := newFakeEngine("Bad", "bad", nil)
	failing.err = searcherrors.NewOther("boom")
	o.AddEngine(failing)

	if _, err := o.Search(context.Background(), query.New("test")); err != nil {
		t.Fatalf("search: %v", err)
	}

	snapshots := o.Stats().All()
	good, ok := snapshots["Good"]
	if !ok || good.SuccessCount != 1 {
		t.Fatalf("expected one recorded success for Good, got %+v", good)
	}
	bad, ok := snapshots["Bad"]
	if !ok || bad.ErrorCount != 1 {
		t.Fatalf("expected one recorded error for Bad, got %+v", bad)
	}
}
