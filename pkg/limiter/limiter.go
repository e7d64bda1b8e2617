package limiter

import "context"

// Limiter is a counting admission gate bounding how many external conversion
// processes may run at once, process-wide. Channel queuing keeps waiters
// roughly FIFO, which is enough to avoid starvation under sustained load.
type Limiter struct {
	slots chan struct{}
}

func New(maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until a slot is free or ctx is done. On success the caller
// must pair it with exactly one Release, on every exit path.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
		panic("limiter: release without acquire")
	}
}
