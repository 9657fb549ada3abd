package settlement

import "context"

const maxWorkers = 1024

// Pool limits how many settlements may be scheduled at once.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool with at least one slot
// and at most 1024 slots.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > maxWorkers {
		size = maxWorkers
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire reserves one slot in the pool.
// If the pool is full, it blocks until a slot becomes available
// or the context is canceled.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.sem
}

// InUse returns the number of held slots.
func (p *Pool) InUse() int {
	return len(p.sem)
}

func (p *Pool) Cap() int {
	return cap(p.sem)
}
