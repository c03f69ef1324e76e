// Package graph assembles tasks, rules and memory pools into a runnable
// unit with one input and one output connector, and keeps enough of an edge
// registry to answer introspection questions (what feeds what) without the
// caller having to track it separately.
package graph

import (
	"github.com/google/uuid"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/gferr"
)

// Node is the shape a graph.Config needs from anything it schedules: every
// *task.Manager[In, Out], for any In/Out, satisfies this structurally.
type Node interface {
	Name() string
	Start()
	Wait()
}

// PoolInfo is the shape a graph.Config needs from a memory pool for
// introspection: every *memory.Pool[T], for any T, satisfies this
// structurally.
type PoolInfo interface {
	Address() string
	Capacity() int
	Available() int
}

// EdgeKind classifies an entry in a graph's edge registry.
type EdgeKind int

const (
	EdgeProducerConsumer EdgeKind = iota
	EdgeRule
	EdgeMemory
	EdgeGraphInput
	EdgeGraphOutput
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeProducerConsumer:
		return "producer-consumer"
	case EdgeRule:
		return "rule"
	case EdgeMemory:
		return "memory"
	case EdgeGraphInput:
		return "graph-input"
	case EdgeGraphOutput:
		return "graph-output"
	default:
		return "unknown"
	}
}

// Edge records one entry of the graph's wiring, kept only for Describe().
type Edge struct {
	Kind EdgeKind
	From string
	To   string
}

// Config is a graph: a fixed input type, a fixed output type, a set of
// scheduled nodes, and a registry of pools and edges for introspection. The
// zero value is not usable; build one with New.
type Config[In, Out any] struct {
	name string
	id   string

	input  *connector.Connector[In]
	output *connector.Connector[Out]

	nodes []Node
	pools []PoolInfo
	edges []Edge

	started bool
}

// New names a graph. Build it up with Input, SetOutput, AddTask, AddPool and
// RecordEdge, then Validate and Start it. An empty name gets a generated
// one, so two anonymous graphs never collide in logs or metrics labels.
func New[In, Out any](name string) *Config[In, Out] {
	id := uuid.NewString()
	if name == "" {
		name = "graph-" + id[:8]
	}
	return &Config[In, Out]{name: name, id: id}
}

// Name returns the graph's name.
func (g *Config[In, Out]) Name() string { return g.name }

// ID returns the instance identity minted at construction, distinct for
// every replica even when names repeat across pipeline copies.
func (g *Config[In, Out]) ID() string { return g.id }

// Input returns the graph's input connector, creating it on first call and
// registering its single producer: whatever calls ProduceData, whether
// that's external code or an execution pipeline's decomposition routing.
func (g *Config[In, Out]) Input(opts ...connector.Option[In]) *connector.Connector[In] {
	if g.input == nil {
		g.input = connector.New[In](g.name+".input", opts...)
		g.input.AddProducer()
		g.edges = append(g.edges, Edge{Kind: EdgeGraphInput, To: g.name})
	}
	return g.input
}

// SetOutput designates c as the graph's output connector, drained by
// ConsumeData. It is ordinarily the final task's output connector in the
// chain the caller just wired.
func (g *Config[In, Out]) SetOutput(c *connector.Connector[Out]) {
	g.output = c
	g.edges = append(g.edges, Edge{Kind: EdgeGraphOutput, From: g.name})
}

// UseInput designates c as the graph's input connector without registering a
// producer on it, unlike Input. An ExecutionPipeline replica's input is fed
// by one or more decomposition-rule managers that each register their own
// producer slot explicitly, so the graph itself must not also claim one.
func (g *Config[In, Out]) UseInput(c *connector.Connector[In]) {
	g.input = c
	g.edges = append(g.edges, Edge{Kind: EdgeGraphInput, To: g.name})
}

// AddTask registers a scheduled node so Start/Wait manage it.
func (g *Config[In, Out]) AddTask(n Node) { g.nodes = append(g.nodes, n) }

// AddPool registers a memory pool for introspection via Describe.
func (g *Config[In, Out]) AddPool(p PoolInfo) { g.pools = append(g.pools, p) }

// RecordEdge adds a descriptive entry to the graph's edge registry. Wiring
// itself (AddProducer/Freeze on the connectors involved) is the caller's
// responsibility; this only feeds Describe.
func (g *Config[In, Out]) RecordEdge(kind EdgeKind, from, to string) {
	g.edges = append(g.edges, Edge{Kind: kind, From: from, To: to})
}

// Validate reports a *gferr.ConfigurationError for wiring mistakes that are
// cheap to catch before Start: no tasks, no output bound, or a pool with a
// non-positive capacity.
func (g *Config[In, Out]) Validate() error {
	if len(g.nodes) == 0 {
		return gferr.Configf(g.name, "graph has no tasks")
	}
	if g.output == nil {
		return gferr.Configf(g.name, "graph has no output connector bound")
	}
	for _, p := range g.pools {
		if p.Capacity() <= 0 {
			return gferr.Configf(g.name, "pool %s has non-positive capacity", p.Address())
		}
	}
	return nil
}

// Start freezes the input connector against further AddProducer calls and
// starts every registered task's threads. The output connector is left
// unfrozen: an execution pipeline inside this graph registers one producer
// per replica sink on it during its own Initialize, which runs on the
// pipeline's thread after Start returns.
func (g *Config[In, Out]) Start() {
	g.started = true
	if g.input != nil {
		g.input.Freeze()
	}
	for _, n := range g.nodes {
		n.Start()
	}
}

// Wait blocks until every registered task has exited.
func (g *Config[In, Out]) Wait() {
	for _, n := range g.nodes {
		n.Wait()
	}
}

// ProduceData pushes one item into the graph's input.
func (g *Config[In, Out]) ProduceData(item In) { g.input.Produce(item) }

// FinishProducingData declares that no more items will ever arrive on the
// graph's input.
func (g *Config[In, Out]) FinishProducingData() { g.input.ProducerFinished() }

// ConsumeData blocks for the next output item, or OutcomeDrained once the
// graph has finished and every buffered result has been taken.
func (g *Config[In, Out]) ConsumeData() connector.Received[Out] { return g.output.Consume() }

// IsOutputTerminated reports whether the graph is fully drained: every
// producer into the output connector finished and every result consumed.
// This is the only way normal termination is reported.
func (g *Config[In, Out]) IsOutputTerminated() bool {
	return g.output != nil && g.output.IsDrained()
}

// Snapshot is a JSON/YAML-friendly description of a graph's wiring, for the
// describe CLI subcommand or any external visualizer.
type Snapshot struct {
	Name  string       `json:"name" yaml:"name"`
	ID    string       `json:"id" yaml:"id"`
	Tasks []string     `json:"tasks" yaml:"tasks"`
	Pools []PoolSnapshot `json:"pools" yaml:"pools"`
	Edges []EdgeSnapshot `json:"edges" yaml:"edges"`
}

// PoolSnapshot describes one registered memory pool.
type PoolSnapshot struct {
	Address   string `json:"address" yaml:"address"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
	Available int    `json:"available" yaml:"available"`
}

// EdgeSnapshot describes one registered edge.
type EdgeSnapshot struct {
	Kind string `json:"kind" yaml:"kind"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Describe renders the graph's current wiring and pool occupancy.
func (g *Config[In, Out]) Describe() Snapshot {
	snap := Snapshot{Name: g.name, ID: g.id}
	for _, n := range g.nodes {
		snap.Tasks = append(snap.Tasks, n.Name())
	}
	for _, p := range g.pools {
		snap.Pools = append(snap.Pools, PoolSnapshot{
			Address: p.Address(), Capacity: p.Capacity(), Available: p.Available(),
		})
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, EdgeSnapshot{Kind: e.Kind.String(), From: e.From, To: e.To})
	}
	return snap
}
