package gesture

// Coalescer is a single-slot queue of the latest pending sample. Samples
// that arrive between two ticks collapse into one, so work is bounded by the
// render rate instead of the input rate.
type Coalescer[T any] struct {
	latest  T
	pending bool
}

// Push stores v. It returns true when the slot was empty, meaning the caller
// has to schedule a tick.
func (c *Coalescer[T]) Push(v T) bool {
	c.latest = v
	if c.pending {
		return false
	}
	c.pending = true
	return true
}

// Drain takes the latest sample, if any.
func (c *Coalescer[T]) Drain() (T, bool) {
	if !c.pending {
		var zero T
		return zero, false
	}
	c.pending = false
	v := c.latest
	var zero T
	c.latest = zero
	return v, true
}

// Pending reports whether a tick is owed.
func (c *Coalescer[T]) Pending() bool {
	return c.pending
}

// Reset drops any queued sample.
func (c *Coalescer[T]) Reset() {
	var zero T
	c.latest = zero
	c.pending = false
}
