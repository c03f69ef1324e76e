package pipeline_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/graph"
	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/pipeline"
	"graphflow.dev/graphflow/pkg/task"
)

// appendID tags each item with the replica that processed it.
type appendID struct{}

func (appendID) Execute(item string, h *task.Handle[string]) {
	h.AddResult(fmt.Sprintf("%s%d", item, h.PipelineID()))
}
func (appendID) NumThreads() int                  { return 1 }
func (appendID) IsStartTask() bool                { return false }
func (t appendID) Copy() task.Task[string, string] { return t }

func appendTemplate() pipeline.Template[string, string] {
	return func(pipelineID, numPipelines int, address string, in *connector.Connector[string], out *connector.Connector[string]) *graph.Config[string, string] {
		g := graph.New[string, string](address)
		m := task.New[string, string]("append", appendID{},
			task.WithInput[string, string](in),
			task.WithOutput[string, string](out),
			task.WithPipelineInfo[string, string](pipelineID, numPipelines),
			task.WithAddress[string, string](address+"/append"))
		out.AddProducer()
		g.AddTask(m)
		g.SetOutput(out)
		return g
	}
}

func runPipeline[In any](t *testing.T, g *graph.Config[In, string], inputs []In) []string {
	t.Helper()
	require.NoError(t, g.Validate())
	g.Start()

	go func() {
		for _, item := range inputs {
			g.ProduceData(item)
		}
		g.FinishProducingData()
	}()

	var got []string
	for {
		r := g.ConsumeData()
		if r.Outcome == connector.OutcomeDrained {
			break
		}
		got = append(got, r.Item)
	}
	g.Wait()
	return got
}

func TestBroadcastDeliversToEveryReplicaOnce(t *testing.T) {
	g := graph.New[string, string]("broadcast")
	in := g.Input()
	out := connector.New[string]("broadcast.out")

	pipe := pipeline.New[string, string]("bcast", 3, appendTemplate(), out,
		[]pipeline.DecompositionRule[string]{pipeline.BroadcastRule[string]{}})

	g.AddTask(task.New[string, struct{}]("bcast", pipe, task.WithInput[string, struct{}](in)))
	g.SetOutput(out)

	got := runPipeline(t, g, []string{"A", "B"})
	assert.ElementsMatch(t, []string{"A0", "A1", "A2", "B0", "B1", "B2"}, got)
}

// moduloRule partitions ints across replicas by value.
type moduloRule struct{ n int }

func (r moduloRule) Route(item int, pipelineID int) bool { return item%r.n == pipelineID }

type intAppendID struct{}

func (intAppendID) Execute(item int, h *task.Handle[string]) {
	h.AddResult(fmt.Sprintf("%d:%d", item, h.PipelineID()))
}
func (intAppendID) NumThreads() int                { return 1 }
func (intAppendID) IsStartTask() bool              { return false }
func (t intAppendID) Copy() task.Task[int, string] { return t }

func TestDecompositionPartitionsByRule(t *testing.T) {
	template := func(pipelineID, numPipelines int, address string, in *connector.Connector[int], out *connector.Connector[string]) *graph.Config[int, string] {
		g := graph.New[int, string](address)
		m := task.New[int, string]("append", intAppendID{},
			task.WithInput[int, string](in),
			task.WithOutput[int, string](out),
			task.WithPipelineInfo[int, string](pipelineID, numPipelines))
		out.AddProducer()
		g.AddTask(m)
		g.SetOutput(out)
		return g
	}

	g := graph.New[int, string]("decompose")
	in := g.Input()
	out := connector.New[string]("decompose.out")

	pipe := pipeline.New[int, string]("mod", 2, template, out,
		[]pipeline.DecompositionRule[int]{moduloRule{n: 2}})

	g.AddTask(task.New[int, struct{}]("mod", pipe, task.WithInput[int, struct{}](in)))
	g.SetOutput(out)

	got := runPipeline(t, g, []int{0, 1, 2, 3, 4, 5})
	require.Len(t, got, 6)
	assert.ElementsMatch(t, []string{"0:0", "2:0", "4:0", "1:1", "3:1", "5:1"}, got)
}

func TestPipelineRequiresDecompositionRule(t *testing.T) {
	out := connector.New[string]("out")
	require.Panics(t, func() {
		pipeline.New[string, string]("no-rules", 2, appendTemplate(), out, nil)
	})
}

// borrowTask allocates a pool buffer per input inside its replica and sends
// the handle downstream, out of the graph that owns the pool.
type borrowTask struct {
	pool *memory.Pool[[]byte]
}

func (t *borrowTask) Execute(item string, h *task.Handle[*memory.Data[[]byte]]) {
	d := t.pool.Get(nil)
	copy(d.Value, item)
	h.AddResult(d)
}
func (t *borrowTask) NumThreads() int   { return 1 }
func (t *borrowTask) IsStartTask() bool { return false }
func (t *borrowTask) Copy() task.Task[string, *memory.Data[[]byte]] {
	c := *t
	return &c
}

func TestMemoryReleasedOutsideProducingGraph(t *testing.T) {
	alloc := memory.AllocatorFunc[[]byte]{New: func() []byte { return make([]byte, 16) }}
	pools := make([]*memory.Pool[[]byte], 2)

	template := func(pipelineID, numPipelines int, address string, in *connector.Connector[string], out *connector.Connector[*memory.Data[[]byte]]) *graph.Config[string, *memory.Data[[]byte]] {
		g := graph.New[string, *memory.Data[[]byte]](address)
		pool := memory.New[[]byte](address+"/buf", memory.Static, 4, alloc,
			memory.WithPipelineID[[]byte](pipelineID))
		pools[pipelineID] = pool
		g.AddPool(pool)

		m := task.New[string, *memory.Data[[]byte]]("borrow", &borrowTask{pool: pool},
			task.WithInput[string, *memory.Data[[]byte]](in),
			task.WithOutput[string, *memory.Data[[]byte]](out),
			task.WithPipelineInfo[string, *memory.Data[[]byte]](pipelineID, numPipelines))
		out.AddProducer()
		g.AddTask(m)
		g.SetOutput(out)
		return g
	}

	g := graph.New[string, *memory.Data[[]byte]]("cross-release")
	in := g.Input()
	out := connector.New[*memory.Data[[]byte]]("cross-release.out")

	pipe := pipeline.New[string, *memory.Data[[]byte]]("borrowers", 2, template, out,
		[]pipeline.DecompositionRule[string]{pipeline.BroadcastRule[string]{}})

	g.AddTask(task.New[string, struct{}]("borrowers", pipe, task.WithInput[string, struct{}](in)))
	g.SetOutput(out)
	require.NoError(t, g.Validate())
	g.Start()

	go func() {
		for _, item := range []string{"x", "y", "z"} {
			g.ProduceData(item)
		}
		g.FinishProducingData()
	}()

	// The enclosing graph's consumer releases each buffer; the pool
	// reference embedded in the handle routes it back to the replica that
	// allocated.
	released := 0
	for {
		r := g.ConsumeData()
		if r.Outcome == connector.OutcomeDrained {
			break
		}
		r.Item.Release()
		released++
	}
	g.Wait()

	require.Equal(t, 6, released, "3 inputs broadcast to 2 replicas")
	for i, pool := range pools {
		assert.Equalf(t, 4, pool.Available(), "replica %d pool refilled", i)
	}
}
