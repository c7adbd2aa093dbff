package worker

import (
	"sync"
)

// Pool bounds the number of concurrently running tasks. Tasks are
// independent; a slow or failing task never blocks another's progress
// beyond occupying one slot.
type Pool struct {
	wg    sync.WaitGroup
	slots chan struct{}
}

// NewPool creates a worker pool with the specified concurrency.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		slots: make(chan struct{}, size),
	}
}

// Submit schedules a task, blocking while all slots are busy.
func (p *Pool) Submit(task func()) {
	p.slots <- struct{}{} // Acquire a slot
	p.wg.Add(1)

	go func() {
		defer func() {
			<-p.slots // Release the slot
			p.wg.Done()
		}()

		task()
	}()
}

// Wait blocks until all submitted tasks have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}
