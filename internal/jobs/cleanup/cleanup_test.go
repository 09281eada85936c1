package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePruner struct {
	rows    []time.Time
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PruneHistoryOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	kept := f.rows[:0]
	deleted := int64(0)
	for _, createdAt := range f.rows {
		if createdAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, createdAt)
	}
	f.rows = kept
	return deleted, nil
}

func TestRunPrunesHistoryOlderThanRetention(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	pruner := &fakePruner{rows: []time.Time{
		now.Add(-31 * 24 * time.Hour),
		now.Add(-29 * 24 * time.Hour),
		now.Add(-time.Hour),
	}}

	job := New(pruner, 30*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(pruner.rows) != 2 {
		t.Fatalf("expected one row pruned, %d left", len(pruner.rows))
	}
	if want := now.Add(-30 * 24 * time.Hour); !pruner.cutoffs[0].Equal(want) {
		t.Fatalf("unexpected cutoff: got %v want %v", pruner.cutoffs[0], want)
	}
}

func TestRunDefaultsRetentionAndWrapsErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("db down")}
	job := New(pruner, 0, nil)
	if job.retention != defaultHistoryRetention {
		t.Fatalf("unexpected default retention: %v", job.retention)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunWithoutPrunerIsNoop(t *testing.T) {
	if err := New(nil, time.Hour, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(&fakePruner{}, time.Hour, nil).Loop(ctx, time.Millisecond)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop")
	}
}
