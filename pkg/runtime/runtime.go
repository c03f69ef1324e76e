// Package runtime drives one or more configured graphs to completion:
// validate, start every task's threads, and join them all on shutdown. It
// is deliberately thin — the scheduling itself lives in task.Manager — but
// it is the one place that sees every graph, which makes it the natural
// host surface for enumeration (a signal handler walking Graphs to dump
// state) without the engine depending on any of that.
package runtime

import (
	"sync"

	"graphflow.dev/graphflow/pkg/gferr"
	"graphflow.dev/graphflow/pkg/graph"
)

// Graph is what the runtime needs from a *graph.Config[In, Out]: the
// erased lifecycle plus introspection. Every Config satisfies it
// regardless of its type parameters.
type Graph interface {
	Name() string
	ID() string
	Validate() error
	Start()
	Wait()
	Describe() graph.Snapshot
}

// Logger is the minimal logging surface the runtime uses; internal/log
// satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Debugf(string, ...any) {}

// Runtime owns a set of graphs and their worker threads.
type Runtime struct {
	graphs []Graph
	logger Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger injects a logger; the default discards everything.
func WithLogger(l Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New builds a Runtime over graphs. At least one graph is required.
func New(graphs []Graph, opts ...Option) *Runtime {
	if len(graphs) == 0 {
		gferr.AbortConfig("runtime", "runtime requires at least one graph")
	}
	r := &Runtime{graphs: graphs, logger: noopLogger{}, done: make(chan struct{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graphs returns the graphs under this runtime, for hosts that want to
// enumerate them (dumping snapshots from a signal handler, feeding an
// external visualizer).
func (r *Runtime) Graphs() []Graph {
	out := make([]Graph, len(r.graphs))
	copy(out, r.graphs)
	return out
}

// Execute validates every graph, then starts every task thread and returns
// immediately. Calling it twice is a protocol violation.
func (r *Runtime) Execute() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		gferr.Abort("runtime", "Execute called twice")
	}
	r.started = true
	r.mu.Unlock()

	for _, g := range r.graphs {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	for _, g := range r.graphs {
		r.logger.Infof("starting graph %s (%s)", g.Name(), g.ID())
		g.Start()
	}
	return nil
}

// Wait joins every thread of every graph. Safe to call from multiple
// goroutines; all of them return once the last thread exits.
func (r *Runtime) Wait() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		gferr.Abort("runtime", "Wait called before Execute")
	}
	done := r.done
	r.mu.Unlock()

	select {
	case <-done:
		return
	default:
	}

	for _, g := range r.graphs {
		g.Wait()
		r.logger.Debugf("graph %s finished", g.Name())
	}
	r.closeDone()
}

func (r *Runtime) closeDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// ExecuteAndWait is Execute followed by Wait.
func (r *Runtime) ExecuteAndWait() error {
	if err := r.Execute(); err != nil {
		return err
	}
	r.Wait()
	return nil
}
