package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunner_RunsJobPeriodically(t *testing.T) {
	var runs atomic.Int32

	r := New(Config{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Job: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.Start(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	if runs.Load() < 3 {
		t.Errorf("expected at least 3 runs, got %d", runs.Load())
	}
}

func TestRunner_RetriesFailedJob(t *testing.T) {
	var attempts atomic.Int32

	r := New(Config{
		Name:       "flaky",
		Interval:   50 * time.Millisecond,
		MaxRetries: 3,
		Job: func(ctx context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_ = r.Start(ctx)

	if attempts.Load() < 3 {
		t.Errorf("expected at least 3 attempts, got %d", attempts.Load())
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	r := New(Config{
		Name:     "idle",
		Interval: time.Hour,
		Job: func(ctx context.Context) error {
			t.Error("job must not run before the first interval")
			return nil
		},
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}
