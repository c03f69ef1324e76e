// Package pipeline implements ExecutionPipeline: a task that replicates an
// enclosed graph N ways and dispatches each input to whichever replica (or
// replicas) its decomposition rules select, merging every replica's output
// into one shared downstream connector.
//
// The original design deep-copies a constructed object graph N times,
// sharing only the rule and allocator instances across copies. A literal
// port of that into Go would need reflection-driven cloning of arbitrary
// generic task graphs. Instead a Pipeline holds a Template — a closure the
// caller writes once that builds one replica's graph.Config from scratch,
// given its replica index and address. Invoking the same closure N times
// produces N independent graphs with fresh connectors and task managers,
// exactly like the deep-copy, while any rule or allocator the closure
// captures by reference is naturally shared across every invocation.
package pipeline

import (
	"strconv"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/gferr"
	"graphflow.dev/graphflow/pkg/graph"
	"graphflow.dev/graphflow/pkg/rule"
	"graphflow.dev/graphflow/pkg/task"
)

// Template builds one replica of the enclosed sub-graph. in is the
// connector the replica must read its input from (wired by UseInput, not
// Input, since the Pipeline's decomposition-rule managers register its
// producers); out is the connector every replica must produce its final
// results into (the shared downstream connector). pipelineID is the
// replica's index in [0, numPipelines) and address is its unique,
// slash-delimited identity.
type Template[In, Out any] func(pipelineID, numPipelines int, address string, in *connector.Connector[In], out *connector.Connector[Out]) *graph.Config[In, Out]

// DecompositionRule decides, for one input item, whether replica
// pipelineID should receive it. A Pipeline invokes every attached rule
// against every replica index for every item, so a rule may route an item
// to any subset of replicas (including all of them, or none).
type DecompositionRule[In any] interface {
	Route(item In, pipelineID int) bool
}

// Shutdowner lets a DecompositionRule flush per-replica state when its
// replica's input edge closes.
type Shutdowner interface {
	Shutdown(pipelineID int)
}

// TerminationPredicate overrides the default termination rule (replica
// input drained) for one DecompositionRule/replica pairing.
type TerminationPredicate interface {
	CanTerminate(pipelineID int, inputDrained bool) bool
}

// BroadcastRule routes every item to every replica. It is the decomposition
// rule to reach for when a pipeline exists purely for parallel replication
// of identical work (the "ExecutionPipeline broadcast, N=3" scenario),
// rather than partitioning.
type BroadcastRule[In any] struct{}

// Route always returns true: BroadcastRule never filters.
func (BroadcastRule[In]) Route(_ In, _ int) bool { return true }

// replicaAdapter makes one (DecompositionRule, replica index) pairing look
// like a rule.Rule[In, In] bound to that replica's input connector: routing
// is a pass-through (emit the item unchanged) gated by Route.
type replicaAdapter[In any] struct {
	rule    DecompositionRule[In]
	replica int
}

func (a *replicaAdapter[In]) Apply(item In, _ int, emit func(In)) {
	if a.rule.Route(item, a.replica) {
		emit(item)
	}
}

func (a *replicaAdapter[In]) CanTerminate(_ int, inputDrained bool) bool {
	if tp, ok := a.rule.(TerminationPredicate); ok {
		return tp.CanTerminate(a.replica, inputDrained)
	}
	return inputDrained
}

func (a *replicaAdapter[In]) Shutdown(int) {
	if sd, ok := a.rule.(Shutdowner); ok {
		sd.Shutdown(a.replica)
	}
}

// replica bundles one instance's graph with the input connector its
// decomposition-rule managers feed.
type replica[In, Out any] struct {
	in *connector.Connector[In]
	g  *graph.Config[In, Out]
}

// Pipeline is a task whose Initialize deep-copies (via Template) its
// enclosed graph numReplicas times and whose Execute forwards each input
// through a front-of-pipeline Bookkeeper built from the decomposition
// rules. It implements task.Task[In, struct{}]: like a Bookkeeper, a
// Pipeline's own output is the "nothing" marker, because its real output
// reaches callers exclusively through the shared downstream connector
// passed to New, not through Handle.AddResult.
type Pipeline[In, Out any] struct {
	name        string
	numReplicas int
	template    Template[In, Out]
	rules       []DecompositionRule[In]
	downstream  *connector.Connector[Out]
	address     string

	replicas   []replica[In, Out]
	bookkeeper *rule.Bookkeeper[In]
}

// Option configures a Pipeline at construction time.
type Option[In, Out any] func(*Pipeline[In, Out])

// WithAddress sets the address prefix each replica's address is derived
// from ("<prefix>/<replica index>"). Defaults to the pipeline's name.
func WithAddress[In, Out any](addr string) Option[In, Out] {
	return func(p *Pipeline[In, Out]) { p.address = addr }
}

// New builds a Pipeline that will replicate template numReplicas times and
// merge every replica's output into downstream. At least one decomposition
// rule is required; New aborts with a configuration diagnostic otherwise,
// matching §4.5's "initialization fails with a clear diagnostic if none are
// attached" (moved up to construction time since Go has no deferred
// initialize-time error channel for a Task).
func New[In, Out any](name string, numReplicas int, template Template[In, Out], downstream *connector.Connector[Out], rules []DecompositionRule[In], opts ...Option[In, Out]) *Pipeline[In, Out] {
	if len(rules) == 0 {
		gferr.AbortConfig("pipeline", "%s: execution pipeline requires at least one decomposition rule", name)
	}
	if numReplicas < 1 {
		gferr.AbortConfig("pipeline", "%s: execution pipeline requires at least one replica, got %d", name, numReplicas)
	}
	p := &Pipeline[In, Out]{
		name:        name,
		numReplicas: numReplicas,
		template:    template,
		rules:       rules,
		downstream:  downstream,
		address:     name,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize deep-copies the template graph numReplicas times, wires one
// rule.Manager per (decomposition rule, replica) pair into that replica's
// input connector, and starts every replica running.
func (p *Pipeline[In, Out]) Initialize(h *task.Handle[struct{}]) {
	var managers []rule.Bound[In]

	p.replicas = make([]replica[In, Out], p.numReplicas)
	for i := 0; i < p.numReplicas; i++ {
		addr := p.address + "/" + strconv.Itoa(i)
		in := connector.New[In](addr + ".in")
		g := p.template(i, p.numReplicas, addr, in, p.downstream)
		g.UseInput(in)
		p.replicas[i] = replica[In, Out]{in: in, g: g}

		for _, r := range p.rules {
			in.AddProducer()
			managers = append(managers, rule.NewManager[In, In](addr, &replicaAdapter[In]{rule: r, replica: i}, in, nil))
		}
	}
	p.bookkeeper = rule.NewBookkeeper[In](p.name+".dispatch", managers...)
	p.bookkeeper.Initialize(h)

	for _, rep := range p.replicas {
		rep.g.Start()
	}
}

// Execute forwards item into the front-of-pipeline Bookkeeper; the
// decomposition rules determine which replica input connector(s) receive
// it.
func (p *Pipeline[In, Out]) Execute(item In, h *task.Handle[struct{}]) {
	p.bookkeeper.Execute(item, h)
}

// CanTerminate defers to the bookkeeper: true only once this pipeline's own
// input is drained and every decomposition rule, for every replica, agrees
// it is ready.
func (p *Pipeline[In, Out]) CanTerminate(inputDrained bool) bool {
	return p.bookkeeper.CanTerminate(inputDrained)
}

// Shutdown closes every replica's input edge (by shutting down the
// bookkeeper, which shuts down every rule manager in turn) and then joins
// every replica's graph.
func (p *Pipeline[In, Out]) Shutdown() {
	p.bookkeeper.Shutdown()
	for _, rep := range p.replicas {
		rep.g.Wait()
	}
}

func (p *Pipeline[In, Out]) NumThreads() int  { return 1 }
func (p *Pipeline[In, Out]) IsStartTask() bool { return false }

// Copy is never called: a Pipeline is not itself replicated by an
// enclosing pipeline the way an ordinary task is. Nesting is achieved by a
// Template that itself builds a graph containing another Pipeline.
func (p *Pipeline[In, Out]) Copy() task.Task[In, struct{}] {
	gferr.Abort("pipeline", "%s: Copy should be unreachable; pipelines replicate via Template", p.name)
	return nil
}
