package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	lim := New(3)

	var inFlight, maxSeen int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := lim.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer lim.Release()

			cur := atomic.AddInt32(&inFlight, 1)
			for {
				seen := atomic.LoadInt32(&maxSeen)
				if cur <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxSeen); got > 3 {
		t.Errorf("observed %d concurrent holders, limit is 3", got)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	lim := New(1)
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lim.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := lim.Acquire(ctx)
	if err == nil {
		lim.Release()
		t.Fatal("Acquire succeeded with all slots held")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Acquire blocked %v past its deadline", elapsed)
	}
}

func TestReleaseUnblocksWaiter(t *testing.T) {
	lim := New(1)
	lim.Acquire(context.Background())

	acquired := make(chan struct{})
	go func() {
		lim.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire succeeded before Release")
	case <-time.After(10 * time.Millisecond):
	}

	lim.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not unblocked by Release")
	}
	lim.Release()
}

func TestNewFloorsAtOneSlot(t *testing.T) {
	for _, n := range []int{0, -3} {
		lim := New(n)
		if err := lim.Acquire(context.Background()); err != nil {
			t.Fatalf("New(%d): Acquire: %v", n, err)
		}
		lim.Release()
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Release without Acquire did not panic")
		}
	}()
	New(2).Release()
}
