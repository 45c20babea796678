package models

import (
	"context"
	"sync"
)

// baselineCache memoizes the token cost of the fixed instruction overhead so
// repeated count calls only pay for the variable payload. One entry per
// provider instance; recomputing under a race would only duplicate a network
// call, but the mutex keeps the value single-flight anyway.
type baselineCache struct {
	mu  sync.Mutex
	val int
	set bool
}

func (c *baselineCache) get(ctx context.Context, compute func(context.Context) (int, error)) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.val, nil
	}
	v, err := compute(ctx)
	if err != nil {
		return 0, err
	}
	c.val = v
	c.set = true
	return v, nil
}

// Reset clears the cached baseline so tests can exercise recomputation
// without a process restart.
func (c *baselineCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = 0
	c.set = false
}
