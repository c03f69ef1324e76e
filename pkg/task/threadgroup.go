package task

import "sync/atomic"

// ThreadGroup tracks how many of a Manager's threads are still running, so
// the last one out — and only the last one — drives the manager's
// producer-finished protocol on its output and memory edges.
type ThreadGroup struct {
	remaining atomic.Int64
}

// NewThreadGroup creates a group of size n.
func NewThreadGroup(n int) *ThreadGroup {
	g := &ThreadGroup{}
	g.remaining.Store(int64(n))
	return g
}

// LastThreadOut decrements the count and reports whether this call was the
// one that brought it to zero.
func (g *ThreadGroup) LastThreadOut() bool {
	return g.remaining.Add(-1) == 0
}
