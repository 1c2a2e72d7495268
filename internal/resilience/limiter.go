package resilience

import "context"

// Limiter bounds the number of synthesis subprocesses that run at once.
// The underlying model is GPU-bound, so letting every request spawn its own
// inference process degrades all of them; a fixed slot pool keeps the host
// usable. A limit of zero (or less) disables the gate entirely.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter with the given number of slots.
// limit <= 0 means unlimited.
func NewLimiter(limit int) *Limiter {
	if limit <= 0 {
		return &Limiter{}
	}
	return &Limiter{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or the context is done.
// Returns the context error when the caller gave up while queued.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.slots == nil {
		return nil
	}

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire. A Release without a matching
// Acquire blocks; pair the two with defer.
func (l *Limiter) Release() {
	if l.slots == nil {
		return
	}
	<-l.slots
}

// Limit returns the configured slot count (0 when unlimited)
func (l *Limiter) Limit() int {
	return cap(l.slots)
}

// InUse returns the number of currently held slots
func (l *Limiter) InUse() int {
	return len(l.slots)
}
