package graph

import (
	"sync"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/rule"
	"graphflow.dev/graphflow/pkg/task"
)

// The functions below are the edge-wiring surface of the builder: each one
// creates whatever connector or pool the edge needs, registers producer
// slots, records the edge for Describe, and adds the endpoints to the
// graph's task set exactly once. They are free functions rather than
// methods because each introduces type parameters of its own (the edge's
// element type) beyond the graph's In/Out.

// AddEdge wires producer's output into consumer's input through a fresh
// connector carrying B, and registers both managers with the graph.
func AddEdge[GIn, GOut, A, B, C any](g *Config[GIn, GOut], producer *task.Manager[A, B], consumer *task.Manager[B, C]) *connector.Connector[B] {
	c := connector.New[B](producer.Name() + "->" + consumer.Name())
	c.AddProducer()
	producer.SetOutput(c)
	consumer.SetInput(c)
	g.adopt(producer)
	g.adopt(consumer)
	g.RecordEdge(EdgeProducerConsumer, producer.Name(), consumer.Name())
	return c
}

// AddRuleEdge attaches r to bookkeeper and wires its emissions into
// consumer's input through a fresh connector. The bookkeeper task itself
// must separately be wired as a consumer (via AddEdge or SetGraphConsumer)
// under bkManager. A rule that reports NeedsLock gets its per-instance
// mutex, shared with every other manager bound to the same rule.
func AddRuleEdge[GIn, GOut, In, Out, C any](g *Config[GIn, GOut], bookkeeper *rule.Bookkeeper[In], bkManager *task.Manager[In, struct{}], name string, r rule.Rule[In, Out], consumer *task.Manager[Out, C]) *connector.Connector[Out] {
	c := connector.New[Out](bkManager.Name() + "/" + name + "->" + consumer.Name())
	c.AddProducer()

	var lock *sync.Mutex
	if l, ok := any(r).(rule.Locking); ok && l.NeedsLock() {
		lock = rule.LockFor(r)
	}
	bookkeeper.AddRule(rule.NewManager[In, Out](name, r, c, lock))

	consumer.SetInput(c)
	g.adopt(consumer)
	g.RecordEdge(EdgeRule, bkManager.Name()+"/"+name, consumer.Name())
	return c
}

// AddMemoryEdge creates a pool of the given kind and capacity, binds the
// releasing manager's last-thread-out termination to it, and registers the
// pool with the graph. The producing task reaches the pool through the
// returned handle (its memGet surface); releasing flows back by the
// address embedded in each Data.
func AddMemoryEdge[GIn, GOut, T, A, B any](g *Config[GIn, GOut], name string, releasing *task.Manager[A, B], alloc memory.Allocator[T], capacity int, kind memory.Kind) *memory.Pool[T] {
	pool := memory.New[T](g.name+"/"+name, kind, capacity, alloc)
	pool.AddReleaser()
	releasing.AddMemoryEdge(pool.Edge())
	g.AddPool(pool)
	g.RecordEdge(EdgeMemory, name, releasing.Name())
	return pool
}

// SetGraphConsumer designates consumer as the task fed by the graph's
// input connector.
func SetGraphConsumer[GIn, GOut, B any](g *Config[GIn, GOut], consumer *task.Manager[GIn, B]) {
	consumer.SetInput(g.Input())
	g.adopt(consumer)
}

// AddGraphProducer wires producer's output into the graph's output
// connector, creating that connector on first use so several sinks can
// merge into it.
func AddGraphProducer[GIn, GOut, A any](g *Config[GIn, GOut], producer *task.Manager[A, GOut]) {
	if g.output == nil {
		g.SetOutput(connector.New[GOut](g.name + ".output"))
	}
	g.output.AddProducer()
	producer.SetOutput(g.output)
	g.adopt(producer)
}

// adopt registers a manager with the graph unless it already is.
func (g *Config[In, Out]) adopt(n Node) {
	for _, existing := range g.nodes {
		if existing == n {
			return
		}
	}
	g.AddTask(n)
}
