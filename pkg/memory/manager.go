package memory

import (
	"graphflow.dev/graphflow/pkg/task"
)

// Manager is the task half of a pool: its input connector is the pool's
// return edge, carrying Data that downstream consumers are done with. Each
// returned element goes through its release rule; a Static pool's element
// rejoins the free list, a Dynamic pool's is freed through the allocator.
//
// Tasks that release synchronously on their own thread call Data.Release
// directly and never need a Manager. The Manager exists for release done as
// dataflow: a consumer far from the allocating graph produces the handle
// onto the return connector, and the pool's own thread reclaims it.
type Manager[T any] struct {
	pool *Pool[T]
}

// NewManager builds the reclamation task for pool.
func NewManager[T any](pool *Pool[T]) *Manager[T] {
	return &Manager[T]{pool: pool}
}

// Execute reclaims one returned element.
func (m *Manager[T]) Execute(d *Data[T], _ *task.Handle[struct{}]) {
	d.Release()
}

func (m *Manager[T]) NumThreads() int   { return 1 }
func (m *Manager[T]) IsStartTask() bool { return false }

// Copy returns the manager itself: it is always single-threaded and bound
// to exactly one pool, so there is never a second instance to make.
func (m *Manager[T]) Copy() task.Task[*Data[T], struct{}] { return m }
