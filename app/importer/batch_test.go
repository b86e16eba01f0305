package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRunBatches_BoundsConcurrency(t *testing.T) {
	const total = 25
	const size = 10

	var mu sync.Mutex
	running, peak := 0, 0

	fns := make([]func(context.Context) error, total)
	for i := range fns {
		fns[i] = func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		}
	}

	result := RunBatches(context.Background(), size, fns)
	if result.Succeeded != total || result.Failed() != 0 {
		t.Fatalf("Expected %d successes, got %d succeeded / %d failed", total, result.Succeeded, result.Failed())
	}
	if peak > size {
		t.Errorf("Observed %d tasks in flight, batch size is %d", peak, size)
	}
}

func TestRunBatches_MembershipPerBatch(t *testing.T) {
	// Track which batch each task ran in via a generation counter the main
	// goroutine bumps between batches: RunBatches guarantees batch N drains
	// before batch N+1 starts, so tasks observe their own batch's generation.
	const size = 10
	ran := make([]int, 25)
	var mu sync.Mutex
	seen := 0

	fns := make([]func(context.Context) error, len(ran))
	for i := range fns {
		i := i
		fns[i] = func(ctx context.Context) error {
			mu.Lock()
			ran[i] = seen / size
			seen++
			mu.Unlock()
			return nil
		}
	}

	RunBatches(context.Background(), size, fns)

	for i, batch := range ran {
		want := i / size
		if batch != want {
			t.Errorf("Task %d ran in batch %d, want %d", i, batch, want)
		}
	}
}

func TestRunBatches_CollectsFailures(t *testing.T) {
	errBoom := errors.New("boom")
	fns := []func(context.Context) error{
		func(context.Context) error { return nil },
		func(context.Context) error { return errBoom },
		func(context.Context) error { return nil },
		func(context.Context) error { return errBoom },
	}

	result := RunBatches(context.Background(), 2, fns)

	if result.Succeeded != 2 {
		t.Errorf("Expected 2 successes, got %d", result.Succeeded)
	}
	if result.Failed() != 2 {
		t.Errorf("Expected 2 failures, got %d", result.Failed())
	}
	for _, err := range result.Errors {
		if !errors.Is(err, errBoom) {
			t.Errorf("Unexpected error collected: %v", err)
		}
	}
}

func TestRunBatches_Empty(t *testing.T) {
	result := RunBatches(context.Background(), 10, nil)
	if result.Succeeded != 0 || result.Failed() != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestRunBatches_ZeroSizeUsesDefault(t *testing.T) {
	fns := make([]func(context.Context) error, 3)
	for i := range fns {
		fns[i] = func(context.Context) error { return nil }
	}

	result := RunBatches(context.Background(), 0, fns)
	if result.Succeeded != 3 {
		t.Errorf("Expected 3 successes, got %d", result.Succeeded)
	}
}
