// Package task defines the unit of work a graph schedules (Task) and the
// manager that runs one or more threads of it against a shared input
// connector (Manager).
package task

import "time"

// Handle is the back-reference a Manager hands a Task body instead of
// letting the body hold a raw pointer into the manager: it exposes only the
// capabilities a task is allowed to use (emitting results, reading its own
// pipeline identity), never the manager's internals.
type Handle[Out any] struct {
	emit         func(Out)
	pipelineID   int
	numPipelines int
	address      string
}

// AddResult emits one output value downstream. A task may call it zero or
// more times per Execute invocation.
func (h *Handle[Out]) AddResult(v Out) {
	if h.emit != nil {
		h.emit(v)
	}
}

// PipelineID is 0 for a task that was never replicated by an execution
// pipeline, and the replica index otherwise.
func (h *Handle[Out]) PipelineID() int { return h.pipelineID }

// NumPipelines is 1 for a task that was never replicated.
func (h *Handle[Out]) NumPipelines() int { return h.numPipelines }

// Address is the task's identity as set with WithAddress, or the manager's
// name when none was set. Callers building replicas scope it by replica
// address themselves (the demo uses e.g. "fanout/1/decode").
func (h *Handle[Out]) Address() string { return h.address }

// Task is the interface a graph node's body implements. Execute is the only
// required method; Initializer, Shutdowner, TerminationPredicate and Poller
// are optional capabilities a Manager checks for via type assertion.
type Task[In, Out any] interface {
	// Execute processes one input item, emitting zero or more outputs
	// through h. For a start task's unprompted first call, item is the
	// zero value of In.
	Execute(item In, h *Handle[Out])

	// NumThreads is how many goroutines the manager runs this task body
	// on: the first against the body itself, each further one against its
	// own Copy().
	NumThreads() int

	// IsStartTask marks a task that fires once with no input before
	// behaving as an ordinary consumer.
	IsStartTask() bool

	// Copy returns an independent instance for each thread beyond the
	// first. Bodies with no mutable state may return a value receiver copy
	// of themselves.
	Copy() Task[In, Out]
}

// Initializer is called once per thread, on that thread, before the
// scheduling loop starts.
type Initializer[Out any] interface {
	Initialize(h *Handle[Out])
}

// Shutdowner is called once per thread, on that thread, after the
// scheduling loop exits.
type Shutdowner interface {
	Shutdown()
}

// TerminationPredicate overrides the default termination rule (terminate
// once the input is drained). inputDrained reports whether every upstream
// producer has already finished and every buffered item has been consumed.
type TerminationPredicate interface {
	CanTerminate(inputDrained bool) bool
}

// Poller opts a task into bounded polling instead of blocking consume, so it
// can do periodic work (flush a batch, check a deadline) between items.
type Poller interface {
	Poll() (enabled bool, timeout time.Duration)
}
