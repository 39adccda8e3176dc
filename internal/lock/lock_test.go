package lock

import (
	"context"
	"sync"
	"testing"
)

func TestMemorySerializesSameKey(t *testing.T) {
	locker := NewMemory()
	ctx := context.Background()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "p1/an1")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive > 1 {
		t.Errorf("lock admitted %d holders at once", maxActive)
	}
}

func TestMemoryIndependentKeys(t *testing.T) {
	locker := NewMemory()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "p1/an1")
	if err != nil {
		t.Fatalf("Acquire(an1) error = %v", err)
	}
	defer releaseA()

	// A different key must not block behind the first.
	releaseB, err := locker.Acquire(ctx, "p1/an2")
	if err != nil {
		t.Fatalf("Acquire(an2) error = %v", err)
	}
	releaseB()
}
