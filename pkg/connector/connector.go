// Package connector implements the typed, thread-safe queue that joins
// every producer and consumer in the graph. A Connector tracks how many
// producers feed it and marks its input terminated the instant the last one
// calls ProducerFinished, which is the only termination signal the rest of
// the engine relies on; it counts as drained once that has happened and
// every buffered item has been consumed.
package connector

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"

	"graphflow.dev/graphflow/pkg/gferr"
)

// Outcome classifies what a Consume or Poll call returned.
type Outcome int

const (
	// OutcomeItem means Received.Item is valid.
	OutcomeItem Outcome = iota
	// OutcomeDrained means every producer has finished and the queue is
	// empty; no further item will ever arrive.
	OutcomeDrained
	// OutcomeTimeout means Poll's deadline elapsed with nothing to return.
	// Only Poll ever produces this outcome.
	OutcomeTimeout
)

// Received is the result of a Consume or Poll call.
type Received[T any] struct {
	Outcome Outcome
	Item    T
}

// Terminator is the subset of Connector's surface a task manager needs to
// drive last-thread-out termination on an edge without knowing its element
// type. Every *Connector[T] satisfies it regardless of T.
type Terminator interface {
	ProducerFinished()
	WakeupConsumer()
	IsInputTerminated() bool
}

// Less orders two items for a priority connector. A nil Less keeps plain
// FIFO order.
type Less[T any] func(a, b T) bool

// Event is published to a Connector's hooks on produce (HookProduced),
// termination (HookTerminated) and wakeup (HookWakeup) so external code
// (introspection, tracing) can observe queue activity without the core
// depending on it. HookDrained is declared, but no Connector operation
// emits it.
type Event struct {
	Name      string
	Outcome   Outcome
	QueueLen  int
	Producers int
}

const (
	HookProduced    hookz.Key = "connector.produced"
	HookDrained     hookz.Key = "connector.drained"
	HookTerminated  hookz.Key = "connector.terminated"
	HookWakeup      hookz.Key = "connector.wakeup"
)

var (
	metricQueueLen  = metricz.Key("connector.queue_len")
	metricProduced  = metricz.Key("connector.produced_total")
	metricConsumed  = metricz.Key("connector.consumed_total")
	metricProducers = metricz.Key("connector.producers")
)

// Option configures a Connector at construction time.
type Option[T any] func(*Connector[T])

// WithLess makes the connector a priority queue ordered by less.
func WithLess[T any](less Less[T]) Option[T] {
	return func(c *Connector[T]) { c.less = less }
}

// WithClock injects a clock, defaulting to clockz.RealClock. Tests use
// clockz.NewFakeClock() to make Poll's timeout deterministic.
func WithClock[T any](clock clockz.Clock) Option[T] {
	return func(c *Connector[T]) { c.clock = clock }
}

// WithMetrics attaches an in-process metrics registry.
func WithMetrics[T any](reg *metricz.Registry) Option[T] {
	return func(c *Connector[T]) { c.metrics = reg }
}

// WithHooks attaches a lifecycle event bus.
func WithHooks[T any](hooks *hookz.Hooks[Event]) Option[T] {
	return func(c *Connector[T]) { c.hooks = hooks }
}

// Connector is a typed FIFO (or, with WithLess, priority) queue with
// producer-refcount-based termination. Zero value is not usable; build one
// with New.
type Connector[T any] struct {
	name string

	mu         sync.Mutex
	items      []T
	less       Less[T]
	producers  int
	wiring     bool
	terminated bool
	wake       chan struct{}

	clock   clockz.Clock
	metrics *metricz.Registry
	hooks   *hookz.Hooks[Event]
}

// New builds a Connector named name, used only in error messages and
// emitted events.
func New[T any](name string, opts ...Option[T]) *Connector[T] {
	c := &Connector[T]{
		name:   name,
		wiring: true,
		wake:   make(chan struct{}),
		clock:  clockz.RealClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddProducer registers one more producer feeding this connector. Must only
// be called during graph wiring, before Freeze; calling it afterward is a
// protocol violation, since the consumer side may already have observed
// (and acted on) a stale producer count.
func (c *Connector[T]) AddProducer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.wiring {
		gferr.Abort("connector", "%s: AddProducer called after wiring was frozen", c.name)
	}
	c.producers++
}

// Freeze stops further AddProducer calls. graph.Config.Start calls this on
// the graph's input connector only; any other connector is frozen only if
// its owner calls Freeze.
func (c *Connector[T]) Freeze() {
	c.mu.Lock()
	c.wiring = false
	producers := c.producers
	c.mu.Unlock()
	c.observe(metricProducers, float64(producers), gauge)
}

// Produce appends item to the queue and wakes a waiting consumer. Producing
// after the connector has terminated is a protocol violation: it means a
// task kept running after its last producer slot already reported finished.
func (c *Connector[T]) Produce(item T) {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		gferr.Abort("connector", "%s: Produce called after input terminated", c.name)
	}
	c.pushLocked(item)
	n := len(c.items)
	c.signalLocked()
	c.mu.Unlock()

	c.observe(metricProduced, 1, counter)
	c.observe(metricQueueLen, float64(n), gauge)
	c.emit(HookProduced, Event{Name: c.name, Outcome: OutcomeItem, QueueLen: n})
}

// ProducerFinished decrements the producer count. When it reaches zero the
// connector is marked terminated and any blocked consumer is woken so it can
// observe OutcomeDrained. Calling this more times than producers were added
// is a protocol violation.
func (c *Connector[T]) ProducerFinished() {
	c.mu.Lock()
	if c.producers <= 0 {
		c.mu.Unlock()
		gferr.Abort("connector", "%s: ProducerFinished called with no producers remaining", c.name)
	}
	c.producers--
	done := c.producers == 0
	if done {
		c.terminated = true
	}
	c.signalLocked()
	c.mu.Unlock()

	if done {
		c.emit(HookTerminated, Event{Name: c.name, Outcome: OutcomeDrained})
	}
}

// WakeupConsumer nudges any blocked Consume/Poll call to re-check state,
// without changing anything itself. Used by task managers that want a
// consumer to notice an external state change (e.g. a sibling edge just
// terminated).
func (c *Connector[T]) WakeupConsumer() {
	c.mu.Lock()
	c.signalLocked()
	c.mu.Unlock()
	c.emit(HookWakeup, Event{Name: c.name})
}

// IsInputTerminated reports whether every producer has finished, regardless
// of whether the queue still holds buffered items.
func (c *Connector[T]) IsInputTerminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

// IsDrained reports whether every producer has finished AND every buffered
// item has been consumed: the point past which Consume can only ever return
// OutcomeDrained. Termination alone is not drain; buffered items produced
// before the last ProducerFinished are still delivered.
func (c *Connector[T]) IsDrained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated && len(c.items) == 0
}

// Len reports the number of buffered items. Exposed for metrics and tests.
func (c *Connector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ProducerCount reports how many producers are registered.
func (c *Connector[T]) ProducerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.producers
}

// Consume blocks until an item is available or the connector drains. There
// is no cancellation mid-wait: the engine's cancellation granularity is the
// next suspend point, reached by closing the graph's input connector, which
// this call will itself observe as OutcomeDrained.
func (c *Connector[T]) Consume() Received[T] {
	for {
		c.mu.Lock()
		if len(c.items) > 0 {
			item := c.popLocked()
			c.mu.Unlock()
			c.observe(metricConsumed, 1, counter)
			return Received[T]{Outcome: OutcomeItem, Item: item}
		}
		if c.terminated {
			c.mu.Unlock()
			return Received[T]{Outcome: OutcomeDrained}
		}
		wake := c.wake
		c.mu.Unlock()
		<-wake
	}
}

// Poll behaves like Consume but returns OutcomeTimeout if d elapses with
// nothing to return. Timing goes through the injected clock, defaulting to
// wall-clock time.
func (c *Connector[T]) Poll(d time.Duration) Received[T] {
	deadline := c.clock.Now().Add(d)
	for {
		c.mu.Lock()
		if len(c.items) > 0 {
			item := c.popLocked()
			c.mu.Unlock()
			c.observe(metricConsumed, 1, counter)
			return Received[T]{Outcome: OutcomeItem, Item: item}
		}
		if c.terminated {
			c.mu.Unlock()
			return Received[T]{Outcome: OutcomeDrained}
		}
		wake := c.wake
		c.mu.Unlock()

		remaining := deadline.Sub(c.clock.Now())
		if remaining <= 0 {
			return Received[T]{Outcome: OutcomeTimeout}
		}

		select {
		case <-wake:
			continue
		case <-c.clock.After(remaining):
			c.mu.Lock()
			if len(c.items) > 0 {
				item := c.popLocked()
				c.mu.Unlock()
				c.observe(metricConsumed, 1, counter)
				return Received[T]{Outcome: OutcomeItem, Item: item}
			}
			if c.terminated {
				c.mu.Unlock()
				return Received[T]{Outcome: OutcomeDrained}
			}
			c.mu.Unlock()
			return Received[T]{Outcome: OutcomeTimeout}
		}
	}
}

func (c *Connector[T]) pushLocked(item T) {
	if c.less == nil {
		c.items = append(c.items, item)
		return
	}
	idx := sort.Search(len(c.items), func(i int) bool { return c.less(item, c.items[i]) })
	c.items = append(c.items, item)
	copy(c.items[idx+1:], c.items[idx:])
	c.items[idx] = item
}

func (c *Connector[T]) popLocked() T {
	item := c.items[0]
	c.items = c.items[1:]
	return item
}

func (c *Connector[T]) signalLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}

type metricKind int

const (
	gauge metricKind = iota
	counter
)

func (c *Connector[T]) observe(key metricz.Key, v float64, kind metricKind) {
	if c.metrics == nil {
		return
	}
	switch kind {
	case gauge:
		c.metrics.Gauge(key).Set(v)
	case counter:
		c.metrics.Counter(key).Add(v)
	}
}

func (c *Connector[T]) emit(key hookz.Key, ev Event) {
	if c.hooks == nil {
		return
	}
	_ = c.hooks.Emit(context.Background(), key, ev) //nolint:errcheck
}
