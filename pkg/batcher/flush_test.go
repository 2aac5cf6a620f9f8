package batcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBatcher_FlushIsSynchronous(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var flushed []int

	b := New(zap.NewNop(), func(_ context.Context, items []int) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, items...)
		return nil
	}, 100, time.Hour, 1000)

	b.Start(ctx)
	defer b.Stop()

	for i := 0; i < 5; i++ {
		if err := b.Add(ctx, i); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(flushed) != 5 {
		t.Fatalf("expected 5 items flushed synchronously, got %d", len(flushed))
	}
}

func TestBatcher_FlushPropagatesCallbackError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flushErr := errors.New("disk full")
	b := New(zap.NewNop(), func(context.Context, []int) error {
		return flushErr
	}, 100, time.Hour, 1000)

	b.Start(ctx)
	defer b.Stop()

	if err := b.Add(ctx, 1); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := b.Flush(ctx); !errors.Is(err, flushErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestBatcher_FlushEmptyIsNoop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := New(zap.NewNop(), func(context.Context, []int) error {
		t.Fatal("callback must not run for an empty flush")
		return nil
	}, 10, time.Hour, 1000)

	b.Start(ctx)
	defer b.Stop()

	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
}
