package rule

import (
	"graphflow.dev/graphflow/pkg/gferr"
	"graphflow.dev/graphflow/pkg/task"
)

// Bound is the type-erased view of a *Manager[In, Out] a Bookkeeper needs:
// none of these methods mention Out, so every Manager[In, Out] satisfies it
// regardless of what it emits, which is what lets one bookkeeper hold
// managers bound to differently-typed downstream connectors.
type Bound[In any] interface {
	Invoke(item In, pipelineID int)
	CanTerminate(pipelineID int, inputDrained bool) bool
	Shutdown(pipelineID int)
}

// Bookkeeper fans one input stream out through an ordered list of rules,
// each dispatched in registration order on the bookkeeper's single thread.
// It implements task.Task[In, struct{}] so it runs inside an ordinary
// task.Manager.
type Bookkeeper[In any] struct {
	name       string
	rules      []Bound[In]
	pipelineID int
}

// NewBookkeeper builds a Bookkeeper that invokes rules, in order, for every
// item it receives.
func NewBookkeeper[In any](name string, rules ...Bound[In]) *Bookkeeper[In] {
	return &Bookkeeper[In]{name: name, rules: rules}
}

// AddRule appends one more bound rule, invoked after every rule already
// attached. Wiring-time only; adding a rule to a running bookkeeper races
// its Execute loop.
func (b *Bookkeeper[In]) AddRule(r Bound[In]) {
	b.rules = append(b.rules, r)
}

// Execute invokes every bound rule, in registration order, with item.
func (b *Bookkeeper[In]) Execute(item In, h *task.Handle[struct{}]) {
	for _, r := range b.rules {
		r.Invoke(item, b.pipelineID)
	}
}

// Initialize captures the pipeline identity assigned by an execution
// pipeline, so CanTerminate (which the task.Manager calls without a handle)
// can still report it per rule.
func (b *Bookkeeper[In]) Initialize(h *task.Handle[struct{}]) {
	b.pipelineID = h.PipelineID()
}

// CanTerminate terminates only once the input is drained AND every bound
// rule agrees it is ready, so a rule with buffered state can hold the edge
// open to flush it.
func (b *Bookkeeper[In]) CanTerminate(inputDrained bool) bool {
	if !inputDrained {
		return false
	}
	for _, r := range b.rules {
		if !r.CanTerminate(b.pipelineID, inputDrained) {
			return false
		}
	}
	return true
}

// Shutdown closes every bound rule's output edge, in registration order.
func (b *Bookkeeper[In]) Shutdown() {
	for _, r := range b.rules {
		r.Shutdown(b.pipelineID)
	}
}

func (b *Bookkeeper[In]) NumThreads() int  { return 1 }
func (b *Bookkeeper[In]) IsStartTask() bool { return false }

// Copy is never called: a bookkeeper is always single-threaded and an
// execution pipeline replicates one by constructing a fresh Bookkeeper bound
// to the replica's own rule managers and output connectors, not by copying
// an existing one.
func (b *Bookkeeper[In]) Copy() task.Task[In, struct{}] {
	gferr.Abort("bookkeeper", "%s: Copy should be unreachable; bookkeepers replicate via NewBookkeeper", b.name)
	return nil
}
