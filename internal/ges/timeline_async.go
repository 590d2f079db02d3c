package ges

import (
	"context"
	"log/slog"
	"sync"

	"timeliner/internal/logging"
	"timeliner/internal/render"
)

// AsyncKind distinguishes the two halves of an aggregated update.
type AsyncKind int

const (
	AsyncStart AsyncKind = iota
	AsyncDone
)

func (k AsyncKind) String() string {
	if k == AsyncDone {
		return "done"
	}
	return "start"
}

// AsyncEvent is the timeline-wide view of a structural update that spans
// all of its compositions.
type AsyncEvent struct {
	Kind   AsyncKind
	Reason string
}

// aggregator folds the per-composition update pairs into one start/done
// pair. Seek updates are forwarded but never counted.
type aggregator struct {
	logger *slog.Logger

	mu       sync.Mutex
	active   int
	pending  int
	awaiting int
	handling int
	idle     chan struct{}
	closed   bool

	wg        sync.WaitGroup
	events    Observers[AsyncEvent]
	forwarded Observers[render.Update]
}

func newAggregator(logger *slog.Logger) *aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	idle := make(chan struct{})
	close(idle)
	return &aggregator{logger: logger, idle: idle}
}

// watch drains one composition's update channel until it is closed.
func (a *aggregator) watch(updates <-chan render.Update) {
	a.mu.Lock()
	a.active++
	a.mu.Unlock()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for u := range updates {
			a.handle(u)
		}
	}()
}

func (a *aggregator) handle(u render.Update) {
	a.mu.Lock()
	a.handling++
	var emit *AsyncEvent
	if u.Reason != render.ReasonSeek {
		emit = a.decideLocked(u)
	}
	pending := a.pending
	a.refreshIdleLocked()
	a.mu.Unlock()

	if u.Reason == render.ReasonSeek {
		a.logger.Debug("composition update not counted",
			logging.String("reason", u.Reason),
			logging.String("kind", u.Kind.String()),
		)
	}
	if emit != nil {
		a.logger.Debug("aggregate update",
			logging.String("kind", emit.Kind.String()),
			logging.String("reason", emit.Reason),
			logging.Int("pending", pending),
		)
		a.events.notify(*emit)
	}
	a.forwarded.notify(u)

	a.mu.Lock()
	a.handling--
	a.refreshIdleLocked()
	a.mu.Unlock()
}

// decideLocked applies one counted update and returns the aggregate event
// it triggers, if any.
func (a *aggregator) decideLocked(u render.Update) *AsyncEvent {
	switch u.Kind {
	case render.UpdateStarted:
		if a.pending == 0 {
			a.pending = a.active
			return &AsyncEvent{Kind: AsyncStart, Reason: u.Reason}
		}
	case render.UpdateDone:
		if a.awaiting > 0 {
			a.awaiting--
		}
		if a.pending > 0 {
			a.pending--
			if a.pending == 0 {
				return &AsyncEvent{Kind: AsyncDone, Reason: u.Reason}
			}
		}
	}
	return nil
}

// expect records n composition commits whose completion WaitIdle should wait for.
func (a *aggregator) expect(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.awaiting = max(a.awaiting+n, 0)
	a.refreshIdleLocked()
}

func (a *aggregator) refreshIdleLocked() {
	busy := !a.closed && (a.pending > 0 || a.awaiting > 0 || a.handling > 0)
	select {
	case <-a.idle:
		if busy {
			a.idle = make(chan struct{})
		}
	default:
		if !busy {
			close(a.idle)
		}
	}
}

func (a *aggregator) wait(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close waits for every watcher to exit. Callers release the compositions
// first so the update channels close.
func (a *aggregator) close() {
	a.wg.Wait()
	a.mu.Lock()
	a.closed = true
	a.pending, a.awaiting = 0, 0
	a.refreshIdleLocked()
	a.mu.Unlock()
}
