package store

import (
	"context"
	"testing"
	"time"

	"github.com/alexchoi0/blueprint/internal/compiled"
	"github.com/alexchoi0/blueprint/internal/optimizer"
	"github.com/alexchoi0/blueprint/internal/plan"
)

func TestMemoryStorePlanRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	c := compiled.NewCompiledPlan(plan.New(), "hash-1", optimizer.Basic, 1000, nil)

	if _, found, err := m.QueryPlan(context.Background(), "hash-1"); err != nil || found {
		t.Fatalf("QueryPlan before insert: found=%v err=%v, want not found", found, err)
	}

	if err := m.InsertPlan(context.Background(), c); err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}
	got, found, err := m.QueryPlan(context.Background(), "hash-1")
	if err != nil || !found {
		t.Fatalf("QueryPlan after insert: found=%v err=%v, want found", found, err)
	}
	if got.SourceHash != "hash-1" {
		t.Errorf("QueryPlan() SourceHash = %q, want hash-1", got.SourceHash)
	}
}

func TestMemoryStoreRunsReturnedMostRecentFirst(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.InsertRun(ctx, Run{ID: string(rune('a' + i)), SourceHash: "h", StartedAt: int64(i)}); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}

	runs, err := m.QueryRuns(ctx, "h")
	if err != nil {
		t.Fatalf("QueryRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("QueryRuns() returned %d runs, want 3", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" || runs[2].ID != "a" {
		t.Errorf("QueryRuns() order = %v, want most-recent-first [c b a]", runs)
	}
}

func TestMemoryStoreRunsForUnknownHashIsEmpty(t *testing.T) {
	m := NewMemoryStore()
	runs, err := m.QueryRuns(context.Background(), "missing")
	if err != nil {
		t.Fatalf("QueryRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("QueryRuns(missing) = %v, want empty", runs)
	}
}

func TestNewRunIDIncludesTruncatedHashAndTimestamp(t *testing.T) {
	startedAt := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	id := NewRunID("abcdefghijklmnopqrstuvwxyz", startedAt)
	want := "abcdefghijkl-20260730T120000"
	if id != want {
		t.Errorf("NewRunID() = %q, want %q", id, want)
	}
}

func TestNewRunIDHandlesShortHash(t *testing.T) {
	startedAt := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	id := NewRunID("abc", startedAt)
	want := "abc-20260730T120000"
	if id != want {
		t.Errorf("NewRunID() = %q, want %q", id, want)
	}
}
