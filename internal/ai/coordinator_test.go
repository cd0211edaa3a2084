package ai

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestTriggerRunsWhenIdle(t *testing.T) {
	c := NewCoordinator(nil, nil)

	ran := false
	ok := c.Trigger(context.Background(), func(ctx context.Context) {
		ran = true
		if ctx.Err() != nil {
			t.Errorf("fresh run context already done: %v", ctx.Err())
		}
	})
	if !ok {
		t.Fatal("Trigger returned false while idle")
	}
	if !ran {
		t.Fatal("run function never called")
	}
	if c.Busy() {
		t.Error("still busy after the run settled")
	}
}

func TestTriggerWhileBusyStartsNothing(t *testing.T) {
	c := NewCoordinator(nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Trigger(context.Background(), func(ctx context.Context) {
			close(started)
			<-release
		})
	}()
	waitClosed(t, started, "first run to start")

	secondRan := false
	if ok := c.Trigger(context.Background(), func(ctx context.Context) { secondRan = true }); ok {
		t.Error("Trigger returned true while busy")
	}
	if secondRan {
		t.Error("second run started while one was in flight")
	}
	if !c.Busy() {
		t.Error("coordinator no longer busy after ignored trigger")
	}

	close(release)
	wg.Wait()
	if c.Busy() {
		t.Error("still busy after the run settled")
	}
}

func TestBusyTriggerAcceptedCancelsAndGoesIdle(t *testing.T) {
	accepts := 0
	c := NewCoordinator(nil, func() bool {
		accepts++
		return true
	})

	started := make(chan struct{})
	cancelled := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Trigger(context.Background(), func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			close(cancelled)
			// Keep unwinding until released so idle-before-settlement is
			// observable.
			<-release
		})
	}()
	waitClosed(t, started, "first run to start")

	if ok := c.Trigger(context.Background(), func(ctx context.Context) {
		t.Error("second run started while one was in flight")
	}); ok {
		t.Error("Trigger returned true while busy")
	}
	if accepts != 1 {
		t.Fatalf("busy handler consulted %d times, want 1", accepts)
	}
	waitClosed(t, cancelled, "cancellation to reach the run")

	// Idle immediately, even though the abandoned run has not settled.
	if c.Busy() {
		t.Error("still busy after accepted cancellation")
	}
	// The one live signal is spent; there is nothing left to cancel.
	if c.CancelActive() {
		t.Error("CancelActive cancelled something while idle")
	}

	close(release)
	wg.Wait()
	if c.Busy() {
		t.Error("busy again after the abandoned run settled")
	}
}

func TestBusyTriggerDeclinedKeepsRunning(t *testing.T) {
	c := NewCoordinator(nil, func() bool { return false })

	started := make(chan struct{})
	release := make(chan struct{})
	var runCtx context.Context
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Trigger(context.Background(), func(ctx context.Context) {
			runCtx = ctx
			close(started)
			<-release
		})
	}()
	waitClosed(t, started, "first run to start")

	c.Trigger(context.Background(), func(ctx context.Context) {
		t.Error("second run started while one was in flight")
	})
	if runCtx.Err() != nil {
		t.Error("declined busy trigger cancelled the active run")
	}
	if !c.Busy() {
		t.Error("coordinator went idle on a declined busy trigger")
	}

	close(release)
	wg.Wait()
}

func TestLateSettlementCannotStompNewerRun(t *testing.T) {
	c := NewCoordinator(nil, nil)

	started1 := make(chan struct{})
	release1 := make(chan struct{})
	var wg1 sync.WaitGroup
	wg1.Add(1)
	go func() {
		defer wg1.Done()
		c.Trigger(context.Background(), func(ctx context.Context) {
			close(started1)
			<-ctx.Done()
			<-release1
		})
	}()
	waitClosed(t, started1, "first run to start")

	if !c.CancelActive() {
		t.Fatal("CancelActive found nothing to cancel")
	}
	if c.Busy() {
		t.Fatal("busy after CancelActive")
	}

	started2 := make(chan struct{})
	release2 := make(chan struct{})
	var wg2 sync.WaitGroup
	wg2.Add(1)
	go func() {
		defer wg2.Done()
		c.Trigger(context.Background(), func(ctx context.Context) {
			close(started2)
			<-release2
		})
	}()
	waitClosed(t, started2, "second run to start")

	// First run settles only now, well into the second busy period.
	close(release1)
	wg1.Wait()
	if !c.Busy() {
		t.Error("abandoned run's settlement flipped a newer busy period to idle")
	}

	close(release2)
	wg2.Wait()
	if c.Busy() {
		t.Error("still busy after the second run settled")
	}
}

func TestRunPanicStillReturnsToIdle(t *testing.T) {
	c := NewCoordinator(nil, nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate")
			}
		}()
		c.Trigger(context.Background(), func(ctx context.Context) {
			panic("generation blew up")
		})
	}()

	if c.Busy() {
		t.Error("stuck busy after a panicking run")
	}
	// And the coordinator is reusable.
	if ok := c.Trigger(context.Background(), func(ctx context.Context) {}); !ok {
		t.Error("Trigger refused to run after a panicking run settled")
	}
}

func TestCancelActiveWhenIdle(t *testing.T) {
	c := NewCoordinator(nil, nil)
	if c.CancelActive() {
		t.Error("CancelActive reported a cancellation while idle")
	}
}
