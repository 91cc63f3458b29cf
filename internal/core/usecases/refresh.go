package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/trackmap/internal/pkg/metrics"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
)

var (
	// ErrAlreadyStarted is returned by a second call to RefreshLoop.Start.
	ErrAlreadyStarted = errors.New("refresh loop already started")
	// ErrCyclePanicked reports a cycle that panicked. Start returns it when
	// the first cycle panics; later panics are logged and the loop goes on.
	ErrCyclePanicked = errors.New("refresh cycle panicked")
)

// CycleFunc runs one fetch-render cycle. It must not touch the map host
// once ctx is done.
type CycleFunc func(ctx context.Context) error

// RefreshLoop runs a cycle once on Start and then once per interval until
// Stop. Cycles run on a single goroutine and never overlap: ticks missed
// during a slow cycle are coalesced by the ticker, and a manual trigger
// while another is pending is dropped.
type RefreshLoop struct {
	viewID   string
	kind     string
	interval time.Duration
	cycle    CycleFunc
	trigger  chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRefreshLoop builds a loop. An interval of zero runs the cycle once on
// Start and afterwards only on Trigger.
func NewRefreshLoop(viewID, kind string, interval time.Duration, cycle CycleFunc) *RefreshLoop {
	return &RefreshLoop{
		viewID:   viewID,
		kind:     kind,
		interval: interval,
		cycle:    cycle,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the first cycle synchronously, then schedules the rest in the
// background. The loop stops when ctx is cancelled or Stop is called.
func (l *RefreshLoop) Start(ctx context.Context) (err error) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	defer func() {
		if err != nil {
			l.Stop()
			close(l.done)
		}
	}()

	if err := loopCtx.Err(); err != nil {
		return err
	}
	if err := l.run(loopCtx); errors.Is(err, ErrCyclePanicked) {
		return err
	}

	go l.loop(loopCtx)
	return nil
}

// Trigger asks for an extra cycle. It returns false when a request is
// already pending.
func (l *RefreshLoop) Trigger() bool {
	select {
	case l.trigger <- struct{}{}:
		return true
	default:
		metrics.RefreshDropped.WithLabelValues(l.kind).Inc()
		return false
	}
}

// Stop cancels the schedule. A cycle in flight sees its context cancelled
// and discards its result. Safe to call more than once.
func (l *RefreshLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// Done is closed once the loop goroutine has exited.
func (l *RefreshLoop) Done() <-chan struct{} {
	return l.done
}

func (l *RefreshLoop) loop(ctx context.Context) {
	defer close(l.done)

	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			l.run(ctx)
		case <-l.trigger:
			l.run(ctx)
		}
	}
}

func (l *RefreshLoop) run(ctx context.Context) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRefreshCycle)
	span.SetAttributes(
		attribute.String(telemetry.AttrViewID, l.viewID),
		attribute.String(telemetry.AttrViewKind, l.kind),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RefreshDuration.WithLabelValues(l.kind).Observe(time.Since(start).Seconds())

		result := "ok"
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanicked, r)
			result = "panic"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("refresh cycle panicked", "view_id", l.viewID, "kind", l.kind, "panic", r, "stack", string(debug.Stack()))
		} else {
			switch {
			case err == nil:
			case ctx.Err() != nil:
				result = "discarded"
			default:
				result = "error"
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				slog.Warn("refresh cycle failed", "view_id", l.viewID, "kind", l.kind, "error", err)
			}
		}
		metrics.RefreshCycles.WithLabelValues(l.kind, result).Inc()
	}()

	return l.cycle(ctx)
}
