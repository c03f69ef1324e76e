// Package rule implements fan-out routing: a Bookkeeper receives one input
// stream and runs it through an ordered list of Rules, each free to emit to
// its own bound output.
package rule

// Rule inspects one input item and routes zero or more derived values to its
// bound output via emit. pipelineID is the execution-pipeline replica index
// the surrounding bookkeeper is running as (0 if not replicated).
type Rule[In, Out any] interface {
	Apply(item In, pipelineID int, emit func(Out))
}

// Shutdowner is called once, on the bookkeeper's single thread, when its
// input drains.
type Shutdowner interface {
	Shutdown(pipelineID int)
}

// TerminationPredicate overrides the bookkeeper-wide default termination
// rule (terminate once the input is drained) for one rule's slot.
type TerminationPredicate interface {
	CanTerminate(pipelineID int, inputDrained bool) bool
}

// Locking marks a rule whose Apply must be serialized because its
// accumulator state is shared — across the bookkeepers of an execution
// pipeline's replicas, or with code outside the bookkeeper thread. Rules
// without it run lock-free.
type Locking interface {
	NeedsLock() bool
}
