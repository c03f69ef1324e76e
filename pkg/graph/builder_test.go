package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/graph"
	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/rule"
	"graphflow.dev/graphflow/pkg/task"
)

type plusOne struct{}

func (plusOne) Execute(item int, h *task.Handle[int]) { h.AddResult(item + 1) }
func (plusOne) NumThreads() int                       { return 1 }
func (plusOne) IsStartTask() bool                     { return false }
func (t plusOne) Copy() task.Task[int, int]           { return t }

type timesTwo struct{}

func (timesTwo) Execute(item int, h *task.Handle[int]) { h.AddResult(item * 2) }
func (timesTwo) NumThreads() int                       { return 1 }
func (timesTwo) IsStartTask() bool                     { return false }
func (t timesTwo) Copy() task.Task[int, int]           { return t }

func drain(t *testing.T, g *graph.Config[int, int], inputs []int) []int {
	t.Helper()
	require.NoError(t, g.Validate())
	g.Start()

	go func() {
		for _, item := range inputs {
			g.ProduceData(item)
		}
		g.FinishProducingData()
	}()

	var got []int
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

func TestBuilderChain(t *testing.T) {
	g := graph.New[int, int]("chain")

	a := task.New[int, int]("plus-one", plusOne{})
	b := task.New[int, int]("times-two", timesTwo{})

	graph.SetGraphConsumer(g, a)
	graph.AddEdge(g, a, b)
	graph.AddGraphProducer(g, b)

	require.False(t, g.IsOutputTerminated())
	got := drain(t, g, []int{0, 1, 2, 3})
	assert.ElementsMatch(t, []int{2, 4, 6, 8}, got)
	assert.True(t, g.IsOutputTerminated())
}

type evenRule struct{}

func (evenRule) Apply(item int, _ int, emit func(int)) {
	if item%2 == 0 {
		emit(item)
	}
}

type passThrough struct{}

func (passThrough) Execute(item int, h *task.Handle[int]) { h.AddResult(item) }
func (passThrough) NumThreads() int                       { return 1 }
func (passThrough) IsStartTask() bool                     { return false }
func (t passThrough) Copy() task.Task[int, int]           { return t }

func TestBuilderRuleEdgeFanOut(t *testing.T) {
	g := graph.New[int, int]("fan-out")

	bk := rule.NewBookkeeper[int]("even-odd")
	bkMgr := task.New[int, struct{}]("even-odd", bk)
	sink := task.New[int, int]("evens", passThrough{})

	graph.SetGraphConsumer(g, bkMgr)
	graph.AddRuleEdge(g, bk, bkMgr, "even", evenRule{}, sink)
	graph.AddGraphProducer(g, sink)

	got := drain(t, g, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.ElementsMatch(t, []int{0, 2, 4, 6, 8}, got)
}

// borrowAndRelease checks one buffer out of its pool per input and returns
// it before emitting, the synchronous-release shape of a compute task that
// needs scratch memory.
type borrowAndRelease struct {
	pool *memory.Pool[[]byte]
}

func (t *borrowAndRelease) Execute(item int, h *task.Handle[int]) {
	d := t.pool.Get(nil)
	d.Value[0] = byte(item)
	d.Release()
	h.AddResult(item)
}
func (t *borrowAndRelease) NumThreads() int   { return 1 }
func (t *borrowAndRelease) IsStartTask() bool { return false }
func (t *borrowAndRelease) Copy() task.Task[int, int] {
	c := *t
	return &c
}

func TestBuilderMemoryEdgeStaticConservation(t *testing.T) {
	g := graph.New[int, int]("scratch")

	body := &borrowAndRelease{}
	m := task.New[int, int]("borrow", body)

	graph.SetGraphConsumer(g, m)
	graph.AddGraphProducer(g, m)
	body.pool = graph.AddMemoryEdge(g, "bufs", m, memory.AllocatorFunc[[]byte]{
		New: func() []byte { return make([]byte, 8) },
	}, 4, memory.Static)

	inputs := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := drain(t, g, inputs)
	assert.Len(t, got, 10)
	assert.Equal(t, 4, body.pool.Available(), "pool full again at quiescence")
}
