package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func runLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)
	return loop, cancel
}

func TestLoopRunsEventsInOrder(t *testing.T) {
	loop, _ := runLoop(t)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := loop.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post error: %v", err)
		}
	}
	if err := loop.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("events ran as %v, want ascending", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("ran %d events, want 5", len(got))
	}
}

func TestLoopClosed(t *testing.T) {
	loop, cancel := runLoop(t)
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := loop.Post(func() {}); errors.Is(err, ErrLoopClosed) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Post after cancel never returned ErrLoopClosed")
}

func TestLoopDoHonorsContext(t *testing.T) {
	loop := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing runs the loop, so only the context can release Do.
	if err := loop.Do(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do error = %v, want context.Canceled", err)
	}
}

func TestLoopTimer(t *testing.T) {
	loop, _ := runLoop(t)

	fired := make(chan struct{}, 1)
	loop.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer callback never ran")
	}

	stopped := loop.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
	stopped.Stop()
	select {
	case <-fired:
		t.Fatal("stopped timer ran")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestLoopPostAfterClose(t *testing.T) {
	loop := NewLoop(8)
	loop.Close()
	for i := 0; i < 100; i++ {
		if err := loop.Post(func() {}); !errors.Is(err, ErrLoopClosed) {
			t.Fatalf("Post after Close error = %v, want ErrLoopClosed", err)
		}
	}
	if n := len(loop.events); n != 0 {
		t.Fatalf("queued %d events after Close, want 0", n)
	}
}
