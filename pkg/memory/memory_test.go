package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/task"
)

func byteAlloc() memory.AllocatorFunc[[]byte] {
	return memory.AllocatorFunc[[]byte]{
		New:  func() []byte { return make([]byte, 4) },
		NewN: func(n int) []byte { return make([]byte, n) },
	}
}

func TestStaticPoolConservesElements(t *testing.T) {
	pool := memory.New[[]byte]("buffers", memory.Static, 2, byteAlloc())
	require.Equal(t, 2, pool.Available())

	a := pool.Get(nil)
	b := pool.Get(nil)
	require.Equal(t, 0, pool.Available())
	require.Equal(t, 2, pool.Outstanding())

	a.Release()
	require.Equal(t, 1, pool.Available())

	b.Release()
	require.Equal(t, 2, pool.Available())
	require.Equal(t, 0, pool.Outstanding())
}

func TestGetBlocksUntilRelease(t *testing.T) {
	pool := memory.New[int]("ints", memory.Static, 1, memory.AllocatorFunc[int]{New: func() int { return 0 }})
	first := pool.Get(nil)

	got := make(chan *memory.Data[int], 1)
	go func() { got <- pool.Get(nil) }()

	select {
	case <-got:
		t.Fatal("Get returned before a release freed an element")
	case <-time.After(20 * time.Millisecond):
	}

	first.Release()

	select {
	case d := <-got:
		require.NotNil(t, d)
	case <-time.After(time.Second):
		t.Fatal("Get never unblocked")
	}
}

func TestDynamicPoolThrottlesAndFrees(t *testing.T) {
	allocated, freed := 0, 0
	alloc := memory.AllocatorFunc[int]{
		New:   func() int { allocated++; return allocated },
		Close: func(int) { freed++ },
	}
	pool := memory.New[int]("ints", memory.Dynamic, 2, alloc)
	require.Equal(t, 2, pool.Available(), "dynamic availability is unfilled capacity")

	a := pool.Get(nil)
	b := pool.Get(nil)
	require.Equal(t, 2, allocated)
	require.Equal(t, 0, pool.Available())

	a.Release()
	require.Equal(t, 1, freed, "dynamic reclaim frees immediately")
	require.Equal(t, 1, pool.Available())

	b.Release()
	require.Equal(t, 2, freed)
	require.Equal(t, allocated, freed, "every allocation freed at quiescence")
}

func TestDynamicGetNHonorsSize(t *testing.T) {
	pool := memory.New[[]byte]("buffers", memory.Dynamic, 1, byteAlloc())
	d := pool.GetN(nil, 64)
	require.Len(t, d.Value, 64)
	require.Equal(t, 64, d.Len())
	d.Release()
}

func TestReleaseTwicePanics(t *testing.T) {
	pool := memory.New[int]("ints", memory.Static, 1, memory.AllocatorFunc[int]{New: func() int { return 0 }})
	d := pool.Get(nil)
	d.Release()
	require.Panics(t, func() { d.Release() })
}

func TestZeroCapacityPoolPanics(t *testing.T) {
	require.Panics(t, func() {
		memory.New[int]("empty", memory.Static, 0, memory.AllocatorFunc[int]{New: func() int { return 0 }})
	})
}

func TestReleaseAfterUsesHoldsThroughConsumers(t *testing.T) {
	pool := memory.New[int]("ints", memory.Static, 1, memory.AllocatorFunc[int]{New: func() int { return 0 }})
	d := pool.Get(memory.NewReleaseAfterUses(2))

	d.Release()
	require.Equal(t, 0, pool.Available(), "first consumer does not release")

	d.Release()
	require.Equal(t, 1, pool.Available(), "second consumer does")
}

func TestManagerReclaimsReturnedData(t *testing.T) {
	pool := memory.New[[]byte]("buffers", memory.Static, 2, byteAlloc())

	returns := connector.New[*memory.Data[[]byte]]("buffers.return")
	returns.AddProducer()
	returns.Freeze()

	mgr := task.New[*memory.Data[[]byte], struct{}]("buffers.manager", memory.NewManager(pool),
		task.WithInput[*memory.Data[[]byte], struct{}](returns))
	mgr.Start()

	a := pool.Get(nil)
	b := pool.Get(nil)
	require.Equal(t, 0, pool.Available())

	returns.Produce(a)
	returns.Produce(b)
	returns.ProducerFinished()
	mgr.Wait()

	require.Equal(t, 2, pool.Available())
}

func TestPoolAddressAndPipelineIDSurviveHandoff(t *testing.T) {
	pool := memory.New[int]("shared-pool", memory.Static, 1,
		memory.AllocatorFunc[int]{New: func() int { return 0 }},
		memory.WithPipelineID[int](3))
	pool.AddReleaser()
	edge := pool.Edge()

	d := pool.Get(nil)
	require.Equal(t, "shared-pool", d.PoolAddress())
	require.Equal(t, 3, d.PipelineID())

	done := make(chan struct{})
	go func() {
		d.Release() // release from a different goroutine than Get
		edge.ProducerFinished()
		close(done)
	}()
	<-done

	require.Equal(t, 1, pool.Available())
	require.True(t, edge.IsInputTerminated())
}
