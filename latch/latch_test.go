package latch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLatch_OpensAfterN(t *testing.T) {
	l := New(3)

	l.CountDown()
	l.CountDown()
	select {
	case <-l.Done():
		t.Fatal("Latch opened after 2 of 3 countdowns")
	case <-time.After(20 * time.Millisecond):
	}

	l.CountDown()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Latch did not open after 3 countdowns")
	}

	if l.Count() != 0 {
		t.Errorf("Expected count 0, got %d", l.Count())
	}
}

func TestLatch_ConcurrentCountDownAndAwait(t *testing.T) {
	const n = 1000
	l := New(n)

	var waiters sync.WaitGroup
	released := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			l.Await()
			released <- struct{}{}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.CountDown()
		}()
	}
	wg.Wait()
	waiters.Wait()

	if len(released) != 10 {
		t.Errorf("Expected 10 released waiters, got %d", len(released))
	}

	// Future waiters return immediately.
	l.Await()
}

func TestLatch_ExtraCountDownClamps(t *testing.T) {
	l := New(1)
	l.CountDown()
	l.CountDown()
	if l.Count() != 0 {
		t.Errorf("Expected count to stay at 0, got %d", l.Count())
	}
}

func TestLatch_ZeroIsOpen(t *testing.T) {
	for _, n := range []int{0, -5} {
		l := New(n)
		select {
		case <-l.Done():
		default:
			t.Errorf("New(%d) should be open", n)
		}
	}
}

func TestLatch_WaitContext(t *testing.T) {
	l := New(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}

	l.CountDown()
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Expected nil after open, got %v", err)
	}
}
