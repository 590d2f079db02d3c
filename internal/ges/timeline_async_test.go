package ges

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"timeliner/internal/render"
)

type asyncCounts struct {
	starts atomic.Int32
	dones  atomic.Int32
}

func countAsync(a *aggregator) *asyncCounts {
	c := &asyncCounts{}
	a.events.Subscribe(func(ev AsyncEvent) {
		if ev.Kind == AsyncStart {
			c.starts.Add(1)
			return
		}
		c.dones.Add(1)
	})
	return c
}

func commitUpdate(kind render.UpdateKind) render.Update {
	return render.Update{Kind: kind, Reason: render.ReasonCommit}
}

func TestAggregatorAllStartsThenAllDones(t *testing.T) {
	const n = 8
	a := newAggregator(nil)
	a.active = n
	counts := countAsync(a)

	for _, kind := range []render.UpdateKind{render.UpdateStarted, render.UpdateDone} {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.handle(commitUpdate(kind))
			}()
		}
		wg.Wait()
	}

	if got := counts.starts.Load(); got != 1 {
		t.Fatalf("counts.starts.Load() = %v, want 1", got)
	}
	if got := counts.dones.Load(); got != 1 {
		t.Fatalf("counts.dones.Load() = %v, want 1", got)
	}
}

func TestAggregatorInterleavedDelivery(t *testing.T) {
	const n = 8
	a := newAggregator(nil)
	a.active = n
	counts := countAsync(a)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.handle(commitUpdate(render.UpdateStarted))
			a.handle(commitUpdate(render.UpdateDone))
		}()
	}
	wg.Wait()

	if got := counts.starts.Load(); got != 1 {
		t.Fatalf("counts.starts.Load() = %v, want 1", got)
	}
	if got := counts.dones.Load(); got != 1 {
		t.Fatalf("counts.dones.Load() = %v, want 1", got)
	}
}

func TestAggregatorIgnoresStrayDone(t *testing.T) {
	a := newAggregator(nil)
	a.active = 1
	counts := countAsync(a)

	a.handle(commitUpdate(render.UpdateDone))
	if got := counts.dones.Load(); got != 0 {
		t.Fatalf("counts.dones.Load() = %v, want 0", got)
	}
	if got := a.pending; got != 0 {
		t.Fatalf("a.pending = %v, want 0", got)
	}

	a.handle(commitUpdate(render.UpdateStarted))
	a.handle(commitUpdate(render.UpdateDone))
	if got := counts.starts.Load(); got != 1 {
		t.Fatalf("counts.starts.Load() = %v, want 1", got)
	}
	if got := counts.dones.Load(); got != 1 {
		t.Fatalf("counts.dones.Load() = %v, want 1", got)
	}
}

func TestAggregatorForwardsSeekWithoutCounting(t *testing.T) {
	a := newAggregator(nil)
	a.active = 2
	counts := countAsync(a)
	var forwarded []render.Update
	a.forwarded.Subscribe(func(u render.Update) { forwarded = append(forwarded, u) })

	a.handle(render.Update{Kind: render.UpdateStarted, Reason: render.ReasonSeek})
	a.handle(render.Update{Kind: render.UpdateDone, Reason: render.ReasonSeek})

	if got := counts.starts.Load(); got != 0 {
		t.Fatalf("counts.starts.Load() = %v, want 0", got)
	}
	if got := counts.dones.Load(); got != 0 {
		t.Fatalf("counts.dones.Load() = %v, want 0", got)
	}
	if got := a.pending; got != 0 {
		t.Fatalf("a.pending = %v, want 0", got)
	}
	if len(forwarded) != 2 {
		t.Fatalf("len(forwarded) = %d, want 2", len(forwarded))
	}
}

func TestAggregatorWaitBlocksUntilExpectedDone(t *testing.T) {
	a := newAggregator(nil)
	a.active = 1
	if err := a.wait(context.Background()); err != nil {
		t.Fatalf("a.wait(context.Background()): %v", err)
	}

	a.expect(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("a.wait(ctx) = %v, want %v", err, context.DeadlineExceeded)
	}

	a.handle(commitUpdate(render.UpdateStarted))
	a.handle(commitUpdate(render.UpdateDone))
	if err := a.wait(context.Background()); err != nil {
		t.Fatalf("a.wait(context.Background()): %v", err)
	}
}

func TestAggregatorCloseReleasesWaiters(t *testing.T) {
	a := newAggregator(nil)
	updates := make(chan render.Update)
	a.watch(updates)
	a.expect(2)

	done := make(chan error, 1)
	go func() { done <- a.wait(context.Background()) }()

	close(updates)
	a.close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not return after close")
	}

	a.expect(1)
	if err := a.wait(context.Background()); err != nil {
		t.Fatalf("a.wait(context.Background()): %v", err)
	}
}
