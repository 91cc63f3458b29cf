package usecases_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/trackmap/internal/core/usecases"
)

func TestRefreshLoop_FirstCycleIsSynchronous(t *testing.T) {
	var runs atomic.Int32
	l := usecases.NewRefreshLoop("v1", "test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	if runs.Load() != 1 {
		t.Errorf("expected 1 cycle after Start, got %d", runs.Load())
	}
	if err := l.Start(context.Background()); !errors.Is(err, usecases.ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRefreshLoop_Ticks(t *testing.T) {
	var runs atomic.Int32
	l := usecases.NewRefreshLoop("v1", "test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	waitFor(t, "three cycles", func() bool { return runs.Load() >= 3 })
}

func TestRefreshLoop_FailedCycleKeepsRunning(t *testing.T) {
	var runs atomic.Int32
	l := usecases.NewRefreshLoop("v1", "test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("upstream down")
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("a failing cycle must not fail Start: %v", err)
	}
	defer l.Stop()

	waitFor(t, "cycles after failures", func() bool { return runs.Load() >= 3 })
}

func TestRefreshLoop_TriggerWhilePendingIsDropped(t *testing.T) {
	var runs atomic.Int32
	entered := make(chan struct{}, 4)
	release := make(chan struct{})

	l := usecases.NewRefreshLoop("v1", "test", 0, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			return nil
		}
		entered <- struct{}{}
		<-release
		return nil
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	if !l.Trigger() {
		t.Fatal("first trigger must be accepted")
	}
	<-entered // the loop is now busy with the triggered cycle

	if !l.Trigger() {
		t.Error("trigger during a cycle must queue one more cycle")
	}
	if l.Trigger() {
		t.Error("trigger while one is pending must be dropped")
	}

	release <- struct{}{}
	<-entered
	release <- struct{}{}

	waitFor(t, "queued cycle", func() bool { return runs.Load() == 3 })

	// Cycles never overlap, so no fourth run was started.
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != 3 {
		t.Errorf("expected exactly 3 cycles, got %d", runs.Load())
	}
}

func TestRefreshLoop_StopDiscardsInFlightResult(t *testing.T) {
	var rendered atomic.Int32
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	l := usecases.NewRefreshLoop("v1", "test", 0, func(ctx context.Context) error {
		if calls.Add(1) > 1 {
			close(entered)
			<-release
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rendered.Add(1)
		return nil
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	l.Trigger()
	<-entered
	l.Stop()
	l.Stop() // idempotent
	close(release)

	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}
	if rendered.Load() != 1 {
		t.Errorf("expected only the first cycle to render, got %d", rendered.Load())
	}
	l.Trigger()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 2 {
		t.Errorf("no cycle may run after Stop, got %d calls", calls.Load())
	}
}

func TestRefreshLoop_StartWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	l := usecases.NewRefreshLoop("v1", "test", time.Hour, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err := l.Start(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if ran {
		t.Error("cycle must not run")
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done must be closed after a failed Start")
	}
}

func TestRefreshLoop_PanicInFirstCycle(t *testing.T) {
	l := usecases.NewRefreshLoop("v1", "test", time.Hour, func(ctx context.Context) error {
		panic("boom")
	})
	if err := l.Start(context.Background()); !errors.Is(err, usecases.ErrCyclePanicked) {
		t.Fatalf("expected ErrCyclePanicked, got %v", err)
	}
	<-l.Done()
}

func TestRefreshLoop_PanicInLaterCycleKeepsLoopAlive(t *testing.T) {
	var runs atomic.Int32
	l := usecases.NewRefreshLoop("v1", "test", 0, func(ctx context.Context) error {
		if runs.Add(1) == 2 {
			panic("boom")
		}
		return nil
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop()

	l.Trigger()
	waitFor(t, "panicking cycle", func() bool { return runs.Load() == 2 })

	waitFor(t, "trigger accepted after panic", func() bool { return l.Trigger() })
	waitFor(t, "cycle after panic", func() bool { return runs.Load() == 3 })

	select {
	case <-l.Done():
		t.Error("loop must keep running after a panicking cycle")
	default:
	}
}
