// Package memory implements bounded buffer pools whose elements a task
// borrows, attaches to an in-flight item, and releases once every consumer
// downstream is done with it — possibly in a different graph than the one
// that allocated it. Each handle carries a reference to the pool that
// allocated it and Release returns it there, so a buffer allocated inside
// pipeline replica k always returns to replica k's pool.
package memory

import (
	"sync"

	"graphflow.dev/graphflow/pkg/gferr"
)

// Kind distinguishes how a pool's elements come into existence.
type Kind int

const (
	// Static pools pre-allocate every element up front; Get blocks until
	// one is free and Free is only called on the allocator at Shutdown.
	Static Kind = iota
	// Dynamic pools allocate on demand. Capacity throttles how many
	// allocations may be outstanding at once; a reclaimed element is
	// freed through the allocator immediately rather than recycled.
	Dynamic
)

func (k Kind) String() string {
	if k == Dynamic {
		return "dynamic"
	}
	return "static"
}

// Allocator supplies and disposes of a pool's elements. AllocN is consulted
// only by Dynamic pools, when a caller asks for a sized element via GetN;
// Static pools always use Alloc.
type Allocator[T any] interface {
	Alloc() T
	AllocN(n int) T
	Free(T)
}

// AllocatorFunc adapts a pair of closures into an Allocator for elements
// that need no explicit disposal (slices, values the GC handles).
type AllocatorFunc[T any] struct {
	New   func() T
	NewN  func(n int) T
	Close func(T)
}

func (a AllocatorFunc[T]) Alloc() T { return a.New() }

func (a AllocatorFunc[T]) AllocN(n int) T {
	if a.NewN != nil {
		return a.NewN(n)
	}
	return a.New()
}

func (a AllocatorFunc[T]) Free(v T) {
	if a.Close != nil {
		a.Close(v)
	}
}

// ReleaseRule decides, from the consumer's point of view, when a piece of
// memory it received is safe to give back to its pool. MemoryUsed is called
// once per release attempt, before CanRelease, so a rule can count uses and
// hold a buffer across several consumers.
type ReleaseRule interface {
	MemoryUsed()
	CanRelease() bool
}

// ReleaseAfterOneUse is the default ReleaseRule: the first consumer to ask
// releases it.
type ReleaseAfterOneUse struct{}

func (ReleaseAfterOneUse) MemoryUsed()      {}
func (ReleaseAfterOneUse) CanRelease() bool { return true }

// ReleaseAfterUses releases once MemoryUsed has been called n times.
type ReleaseAfterUses struct {
	n    int
	used int
}

// NewReleaseAfterUses builds a rule that holds a buffer through n uses.
func NewReleaseAfterUses(n int) *ReleaseAfterUses { return &ReleaseAfterUses{n: n} }

func (r *ReleaseAfterUses) MemoryUsed()      { r.used++ }
func (r *ReleaseAfterUses) CanRelease() bool { return r.used >= r.n }

// Data wraps a pool element with a reference to (and the address of) the
// pool it must be returned to, so release is routed correctly even if the
// data crosses into another graph (an execution pipeline replica, a downstream sub-graph)
// before a consumer is done with it.
type Data[T any] struct {
	Value       T
	n           int
	poolAddress string
	pipelineID  int
	pool        *Pool[T]
	rule        ReleaseRule
	released    bool
	mu          sync.Mutex
}

// PoolAddress identifies which pool this data must be released back to.
func (d *Data[T]) PoolAddress() string { return d.poolAddress }

// PipelineID is the replica index of the graph whose pool allocated this
// data, 0 when the pool was never replicated.
func (d *Data[T]) PipelineID() int { return d.pipelineID }

// Len is the element count this data was allocated with: the n passed to
// GetN, or 1 for Get.
func (d *Data[T]) Len() int { return d.n }

// Release hands the data back to its owning pool if its release rule
// agrees, wherever in the graph the call happens. A rule that refuses keeps
// the data checked out; a later Release consults it again. Releasing data
// whose rule already fired is a protocol violation: it means two consumers
// both believed they held the last reference.
func (d *Data[T]) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		gferr.Abort("memory", "data from pool %s released twice", d.poolAddress)
	}
	rule := d.rule
	if rule == nil {
		rule = ReleaseAfterOneUse{}
	}
	rule.MemoryUsed()
	if !rule.CanRelease() {
		return
	}
	d.released = true
	d.pool.reclaim(d)
}

// Pool is a bounded buffer of T, addressable by name so Data released from
// anywhere in the graph finds its way back.
type Pool[T any] struct {
	address    string
	kind       Kind
	capacity   int
	pipelineID int
	alloc      Allocator[T]

	mu            sync.Mutex
	free          []T
	outstanding   int
	wake          chan struct{}
	releasers     int
	releasersDone bool
}

// Option configures a Pool at construction time.
type Option[T any] func(*Pool[T])

// WithPipelineID stamps every Data the pool hands out with the replica
// index of the graph the pool belongs to.
func WithPipelineID[T any](id int) Option[T] {
	return func(p *Pool[T]) { p.pipelineID = id }
}

// New builds a pool of the given kind and capacity. A Static pool calls
// alloc.Alloc capacity times up front; a Dynamic pool allocates lazily as
// Get and GetN need elements. A non-positive capacity is a configuration
// error caught here rather than as a deadlock at the first Get.
func New[T any](address string, kind Kind, capacity int, alloc Allocator[T], opts ...Option[T]) *Pool[T] {
	if capacity <= 0 {
		gferr.AbortConfig("memory", "pool %s: capacity must be positive, got %d", address, capacity)
	}
	p := &Pool[T]{
		address:  address,
		kind:     kind,
		capacity: capacity,
		alloc:    alloc,
		wake:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if kind == Static {
		for i := 0; i < capacity; i++ {
			p.free = append(p.free, alloc.Alloc())
		}
	}
	return p
}

// Address returns the pool's name, embedded in every Data it hands out.
func (p *Pool[T]) Address() string { return p.address }

// Capacity returns the pool's maximum element count.
func (p *Pool[T]) Capacity() int { return p.capacity }

// Kind reports whether the pool is Static or Dynamic.
func (p *Pool[T]) Kind() Kind { return p.kind }

// Available reports how many elements could be handed out right now
// without blocking: free elements for a Static pool, free plus
// not-yet-allocated headroom for a Dynamic one.
func (p *Pool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.kind == Dynamic {
		return p.capacity - p.outstanding
	}
	return len(p.free)
}

// Outstanding reports how many elements are currently checked out.
func (p *Pool[T]) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Get blocks until an element is available, optionally attaching rule as
// its release rule (nil means ReleaseAfterOneUse).
func (p *Pool[T]) Get(rule ReleaseRule) *Data[T] {
	return p.get(rule, 1, false)
}

// GetN is Get with a caller-supplied element count, honored only by
// Dynamic pools (a Static pool's elements are fixed at construction).
func (p *Pool[T]) GetN(rule ReleaseRule, n int) *Data[T] {
	return p.get(rule, n, true)
}

func (p *Pool[T]) get(rule ReleaseRule, n int, sized bool) *Data[T] {
	for {
		p.mu.Lock()
		if cnt := len(p.free); cnt > 0 {
			v := p.free[cnt-1]
			p.free = p.free[:cnt-1]
			p.outstanding++
			p.mu.Unlock()
			return p.wrap(v, rule, n)
		}
		if p.kind == Dynamic && p.outstanding < p.capacity {
			p.outstanding++
			p.mu.Unlock()
			var v T
			if sized {
				v = p.alloc.AllocN(n)
			} else {
				v = p.alloc.Alloc()
			}
			return p.wrap(v, rule, n)
		}
		wake := p.wake
		p.mu.Unlock()
		<-wake
	}
}

func (p *Pool[T]) wrap(v T, rule ReleaseRule, n int) *Data[T] {
	return &Data[T]{
		Value:       v,
		n:           n,
		poolAddress: p.address,
		pipelineID:  p.pipelineID,
		pool:        p,
		rule:        rule,
	}
}

func (p *Pool[T]) reclaim(d *Data[T]) {
	if p.kind == Dynamic {
		p.alloc.Free(d.Value)
		p.mu.Lock()
		p.outstanding--
		p.signalLocked()
		p.mu.Unlock()
		return
	}
	p.mu.Lock()
	p.free = append(p.free, d.Value)
	p.outstanding--
	p.signalLocked()
	p.mu.Unlock()
}

// Shutdown disposes of every element still held by the pool through the
// allocator. For a Static pool this is the only time Free is called.
func (p *Pool[T]) Shutdown() {
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.mu.Unlock()
	for _, v := range free {
		p.alloc.Free(v)
	}
}

// AddReleaser registers one more task that may release Data back into this
// pool. Called during graph wiring, mirroring connector.AddProducer.
func (p *Pool[T]) AddReleaser() {
	p.mu.Lock()
	p.releasers++
	p.mu.Unlock()
}

func (p *Pool[T]) releaserFinished() {
	p.mu.Lock()
	p.releasers--
	if p.releasers <= 0 && !p.releasersDone {
		p.releasersDone = true
		p.signalLocked()
	}
	p.mu.Unlock()
}

func (p *Pool[T]) allReleasersDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.releasersDone
}

func (p *Pool[T]) signalLocked() {
	close(p.wake)
	p.wake = make(chan struct{})
}

// Edge returns the pool as a connector.Terminator, so a task.Manager that
// releases into this pool can register it via task.WithMemoryEdge and have
// last-thread-out termination tracked for it the same way an ordinary output
// connector is.
func (p *Pool[T]) Edge() Edge[T] { return Edge[T]{pool: p} }

// Edge is the connector.Terminator-shaped view of a Pool used to track a
// memory edge's producer (releaser) lifecycle.
type Edge[T any] struct{ pool *Pool[T] }

func (e Edge[T]) ProducerFinished()       { e.pool.releaserFinished() }
func (e Edge[T]) WakeupConsumer()         {}
func (e Edge[T]) IsInputTerminated() bool { return e.pool.allReleasersDone() }
