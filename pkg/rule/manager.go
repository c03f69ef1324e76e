package rule

import (
	"sync"

	"graphflow.dev/graphflow/pkg/connector"
)

// Manager binds one Rule to the output connector it is allowed to emit on.
// Rules that must not run concurrently with one another (because they share
// accumulator state) are given the same *sync.Mutex so a Bookkeeper serializes
// them even though the bookkeeper itself is already single-threaded per
// pipeline replica — the lock matters once a rule's state is also touched
// from outside the bookkeeper's own thread (e.g. a periodic flush).
type Manager[In, Out any] struct {
	name   string
	rule   Rule[In, Out]
	output *connector.Connector[Out]
	lock   *sync.Mutex
}

// NewManager binds rule to output. lock may be nil.
func NewManager[In, Out any](name string, r Rule[In, Out], output *connector.Connector[Out], lock *sync.Mutex) *Manager[In, Out] {
	return &Manager[In, Out]{name: name, rule: r, output: output, lock: lock}
}

var instanceLocks sync.Map // rule identity -> *sync.Mutex

// LockFor returns the per-instance mutex for r, creating it on first use.
// Every manager bound to the same rule instance — one per pipeline replica,
// typically — gets the same mutex, which is what makes a shared accumulator
// safe. r must be of pointer or otherwise comparable-by-identity type.
func LockFor(r any) *sync.Mutex {
	lock, _ := instanceLocks.LoadOrStore(r, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Invoke runs the rule against one item, serialized under the manager's lock
// if it has one.
func (m *Manager[In, Out]) Invoke(item In, pipelineID int) {
	if m.lock != nil {
		m.lock.Lock()
		defer m.lock.Unlock()
	}
	m.rule.Apply(item, pipelineID, m.output.Produce)
}

// CanTerminate reports whether the bound rule is ready for its edge to
// close, deferring to the default (inputDrained) unless the rule implements
// TerminationPredicate.
func (m *Manager[In, Out]) CanTerminate(pipelineID int, inputDrained bool) bool {
	if tp, ok := m.rule.(TerminationPredicate); ok {
		return tp.CanTerminate(pipelineID, inputDrained)
	}
	return inputDrained
}

// Shutdown notifies the rule, then closes the manager's output edge.
func (m *Manager[In, Out]) Shutdown(pipelineID int) {
	if sd, ok := m.rule.(Shutdowner); ok {
		sd.Shutdown(pipelineID)
	}
	m.output.ProducerFinished()
	m.output.WakeupConsumer()
}
