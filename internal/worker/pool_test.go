package worker

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolRunsEverything(t *testing.T) {
	pool := NewPool(4)

	var done int32
	for i := 0; i < 50; i++ {
		pool.Submit(func() {
			atomic.AddInt32(&done, 1)
		})
	}
	pool.Wait()

	if done != 50 {
		t.Errorf("completed %d tasks, want 50", done)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 3
	pool := NewPool(size)

	var mu sync.Mutex
	var running, peak int

	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	pool.Wait()

	if peak > size {
		t.Errorf("observed %d concurrent tasks, limit is %d", peak, size)
	}
}

func TestPoolMinimumSize(t *testing.T) {
	pool := NewPool(0)

	var done int32
	pool.Submit(func() { atomic.AddInt32(&done, 1) })
	pool.Wait()

	if done != 1 {
		t.Error("a zero-sized pool must still run tasks")
	}
}
