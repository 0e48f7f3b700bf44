package sourcing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeSource struct {
	instances []Instance
	err       error
	calls     int
}

func (f *fakeSource) Get(ctx context.Context) ([]Instance, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.instances, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAggregator_RefreshPublishesAll(t *testing.T) {
	s1 := &fakeSource{instances: []Instance{{Name: "t1", ServiceClusters: []string{"httpbin"}}}}
	s2 := &fakeSource{instances: []Instance{{Name: "x1", ServiceClusters: []string{"google"}}}}

	agg := New(discardLogger(), []Source{s1, s2}, []string{"inline", "inline"}, nil)
	if agg.Warmed() {
		t.Fatal("expected Warmed() false before any refresh")
	}

	agg.Refresh(context.Background())

	if !agg.Warmed() {
		t.Fatal("expected Warmed() true after a refresh")
	}
	all := agg.All()
	if len(all) != 2 {
		t.Fatalf("got %d instances, want 2", len(all))
	}
	if all[0].Name != "t1" || all[1].Name != "x1" {
		t.Fatalf("expected source-declaration order, got %v", all)
	}
}

// TestAggregator_SourceIsolation supplements spec.md §8 with
// original_source/test/unit/test_sources.py's property: one failing
// source's error must not affect another source's contribution within the
// same refresh, and must not discard that source's own last-known-good
// view.
func TestAggregator_SourceIsolation(t *testing.T) {
	good := &fakeSource{instances: []Instance{{Name: "t1"}}}
	flaky := &fakeSource{instances: []Instance{{Name: "x1"}}}

	agg := New(discardLogger(), []Source{good, flaky}, []string{"inline", "inline"}, nil)
	agg.Refresh(context.Background())
	if len(agg.All()) != 2 {
		t.Fatalf("setup: expected 2 instances after first refresh, got %d", len(agg.All()))
	}

	flaky.err = errors.New("broker unreachable")
	agg.Refresh(context.Background())

	all := agg.All()
	if len(all) != 2 {
		t.Fatalf("expected last-known-good retained for the failing source, got %d instances: %v", len(all), all)
	}
	names := map[string]bool{}
	for _, inst := range all {
		names[inst.ResourceName()] = true
	}
	if !names["t1"] || !names["x1"] {
		t.Fatalf("expected both t1 (fresh) and x1 (stale last-known-good), got %v", all)
	}
}

func TestAggregator_Match(t *testing.T) {
	s := &fakeSource{instances: []Instance{
		{Name: "t1", ServiceClusters: []string{"httpbin-proxy"}},
		{Name: "x1", ServiceClusters: []string{"*"}},
		{Name: "other", ServiceClusters: []string{"unrelated"}},
	}}
	agg := New(discardLogger(), []Source{s}, []string{"inline"}, nil)
	agg.Refresh(context.Background())

	matched := agg.Match("httpbin-proxy")
	if len(matched) != 2 {
		t.Fatalf("got %d matched instances, want 2 (exact + wildcard): %v", len(matched), matched)
	}
}

func TestAggregator_RefreshSkipsWhileInProgress(t *testing.T) {
	s := &fakeSource{instances: []Instance{{Name: "t1"}}}
	agg := New(discardLogger(), []Source{s}, []string{"inline"}, nil)

	agg.refreshing.Store(true)
	agg.Refresh(context.Background())
	if s.calls != 0 {
		t.Fatalf("expected Get() not called while a refresh is already in progress, got %d calls", s.calls)
	}
}
