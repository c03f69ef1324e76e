package task

import (
	"sync"
	"time"

	"graphflow.dev/graphflow/pkg/connector"
)

// Logger is the minimal surface a Manager needs; internal/log.Logger
// satisfies it, but task stays decoupled from any concrete backend.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Errorf(string, ...any) {}

// Stats accumulates the narrow profiling counters a Manager keeps: total
// time its threads spent inside Execute versus blocked waiting for input.
type Stats struct {
	mu          sync.Mutex
	ComputeTime time.Duration
	WaitTime    time.Duration
}

func (s *Stats) addCompute(d time.Duration) {
	s.mu.Lock()
	s.ComputeTime += d
	s.mu.Unlock()
}

func (s *Stats) addWait(d time.Duration) {
	s.mu.Lock()
	s.WaitTime += d
	s.mu.Unlock()
}

// Snapshot returns a copy safe to read without racing the running threads.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{ComputeTime: s.ComputeTime, WaitTime: s.WaitTime}
}

// Option configures a Manager at construction time.
type Option[In, Out any] func(*Manager[In, Out])

// WithInput binds the connector the manager's threads consume from. A start
// task with no upstream input and no graph-input binding omits this.
func WithInput[In, Out any](c *connector.Connector[In]) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.input = c }
}

// WithOutput binds the connector the manager's threads produce to.
func WithOutput[In, Out any](c *connector.Connector[Out]) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.output = c }
}

// WithMemoryEdge registers an additional edge (a memory manager's return
// connector) that must also observe this manager's last-thread-out
// termination.
func WithMemoryEdge[In, Out any](t connector.Terminator) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.memoryEdges = append(m.memoryEdges, t) }
}

// WithPipelineInfo records the replica identity assigned by an execution
// pipeline; the zero value (id 0, count 1) means "not replicated".
func WithPipelineInfo[In, Out any](id, count int) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.pipelineID, m.numPipelines = id, count }
}

// WithAddress sets the graph-assigned, address-scoped identity exposed to
// the task body through its Handle.
func WithAddress[In, Out any](addr string) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.address = addr }
}

// WithLogger injects a logger; the default discards everything.
func WithLogger[In, Out any](l Logger) Option[In, Out] {
	return func(m *Manager[In, Out]) { m.logger = l }
}

// Manager runs a Task body on NumThreads() goroutines, the first against the
// body itself and each further one against its own Copy(), competing for
// items on a single shared input connector.
type Manager[In, Out any] struct {
	name      string
	prototype Task[In, Out]

	input       *connector.Connector[In]
	output      *connector.Connector[Out]
	memoryEdges []connector.Terminator

	pollEnabled bool
	pollTimeout time.Duration

	pipelineID   int
	numPipelines int
	address      string

	logger Logger
	stats  Stats

	group *ThreadGroup
	wg    sync.WaitGroup
}

// New builds a Manager around body. The manager reads NumThreads,
// IsStartTask and, if present, Poller directly off body.
func New[In, Out any](name string, body Task[In, Out], opts ...Option[In, Out]) *Manager[In, Out] {
	m := &Manager[In, Out]{
		name:         name,
		prototype:    body,
		numPipelines: 1,
		address:      name,
		logger:       noopLogger{},
	}
	if p, ok := any(body).(Poller); ok {
		m.pollEnabled, m.pollTimeout = p.Poll()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the manager's configured name.
func (m *Manager[In, Out]) Name() string { return m.name }

// SetInput binds the manager's input connector after construction. Wiring
// helpers in pkg/graph use this; it must not be called once Start has run.
func (m *Manager[In, Out]) SetInput(c *connector.Connector[In]) { m.input = c }

// SetOutput binds the manager's output connector after construction, under
// the same wiring-time restriction as SetInput. Registering the producer
// slot on c is the caller's job, as with WithOutput.
func (m *Manager[In, Out]) SetOutput(c *connector.Connector[Out]) { m.output = c }

// AddMemoryEdge registers an additional terminator edge after construction,
// the post-construction form of WithMemoryEdge.
func (m *Manager[In, Out]) AddMemoryEdge(t connector.Terminator) {
	m.memoryEdges = append(m.memoryEdges, t)
}

// Input returns the bound input connector, nil for an unwired start task.
func (m *Manager[In, Out]) Input() *connector.Connector[In] { return m.input }

// Output returns the bound output connector, nil for a sink.
func (m *Manager[In, Out]) Output() *connector.Connector[Out] { return m.output }

// Stats returns a snapshot of accumulated compute/wait time across every
// thread this manager has run.
func (m *Manager[In, Out]) Stats() Stats { return m.stats.Snapshot() }

// Start spawns NumThreads() goroutines and returns immediately.
func (m *Manager[In, Out]) Start() {
	n := m.prototype.NumThreads()
	if n < 1 {
		n = 1
	}
	m.group = NewThreadGroup(n)
	m.wg.Add(n)
	for i := 0; i < n; i++ {
		body := m.prototype
		if i > 0 {
			body = m.prototype.Copy()
		}
		go m.runThread(body)
	}
}

// Wait blocks until every thread has exited.
func (m *Manager[In, Out]) Wait() { m.wg.Wait() }

func (m *Manager[In, Out]) emit(v Out) {
	if m.output != nil {
		m.output.Produce(v)
	}
}

func (m *Manager[In, Out]) runThread(body Task[In, Out]) {
	defer m.wg.Done()

	handle := &Handle[Out]{
		emit:         m.emit,
		pipelineID:   m.pipelineID,
		numPipelines: m.numPipelines,
		address:      m.address,
	}
	if init, ok := any(body).(Initializer[Out]); ok {
		init.Initialize(handle)
	}

	isStartTask := m.prototype.IsStartTask()
	first := true

	for {
		if isStartTask && first {
			first = false
			var zero In
			start := time.Now()
			body.Execute(zero, handle)
			m.stats.addCompute(time.Since(start))
			if m.input == nil {
				break
			}
			continue
		}

		inputDrained := m.input == nil || m.input.IsDrained()
		if tp, ok := any(body).(TerminationPredicate); ok {
			if tp.CanTerminate(inputDrained) {
				break
			}
		} else if inputDrained {
			break
		}
		if m.input == nil {
			break
		}

		waitStart := time.Now()
		var received connector.Received[In]
		if m.pollEnabled {
			received = m.input.Poll(m.pollTimeout)
		} else {
			received = m.input.Consume()
		}
		m.stats.addWait(time.Since(waitStart))

		switch received.Outcome {
		case connector.OutcomeDrained:
			continue // re-check CanTerminate with inputDrained now true
		case connector.OutcomeTimeout:
			continue
		case connector.OutcomeItem:
			start := time.Now()
			body.Execute(received.Item, handle)
			m.stats.addCompute(time.Since(start))
		}
	}

	if sd, ok := any(body).(Shutdowner); ok {
		sd.Shutdown()
	}

	if m.group.LastThreadOut() {
		m.logger.Debugf("task %s: last thread out, closing output edges", m.name)
		if m.output != nil {
			m.output.ProducerFinished()
			m.output.WakeupConsumer()
		}
		for _, edge := range m.memoryEdges {
			edge.ProducerFinished()
			edge.WakeupConsumer()
		}
	}
}
