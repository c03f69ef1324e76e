package runtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/graph"
	"graphflow.dev/graphflow/pkg/runtime"
	"graphflow.dev/graphflow/pkg/task"
)

type negateTask struct{}

func (negateTask) Execute(item int, h *task.Handle[int]) { h.AddResult(-item) }
func (negateTask) NumThreads() int                       { return 1 }
func (negateTask) IsStartTask() bool                     { return false }
func (t negateTask) Copy() task.Task[int, int]           { return t }

func buildNegator(name string) *graph.Config[int, int] {
	g := graph.New[int, int](name)
	in := g.Input()
	out := connector.New[int](name + ".out")
	out.AddProducer()
	g.AddTask(task.New[int, int]("negate", negateTask{},
		task.WithInput[int, int](in), task.WithOutput[int, int](out)))
	g.SetOutput(out)
	return g
}

func TestExecuteAndWaitRunsGraphToCompletion(t *testing.T) {
	g := buildNegator("negator")
	rt := runtime.New([]runtime.Graph{g})

	require.NoError(t, rt.Execute())

	g.ProduceData(5)
	g.FinishProducingData()

	r := g.ConsumeData()
	require.Equal(t, connector.OutcomeItem, r.Outcome)
	require.Equal(t, -5, r.Item)
	require.Equal(t, connector.OutcomeDrained, g.ConsumeData().Outcome)

	done := make(chan struct{})
	go func() { rt.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
}

func TestExecuteRejectsInvalidGraph(t *testing.T) {
	g := graph.New[int, int]("broken") // no tasks, no output
	rt := runtime.New([]runtime.Graph{g})
	require.Error(t, rt.Execute())
}

func TestExecuteTwicePanics(t *testing.T) {
	g := buildNegator("negator")
	rt := runtime.New([]runtime.Graph{g})
	require.NoError(t, rt.Execute())
	require.Panics(t, func() { _ = rt.Execute() })

	g.FinishProducingData()
	rt.Wait()
}

func TestRuntimeRequiresAGraph(t *testing.T) {
	require.Panics(t, func() { runtime.New(nil) })
}

func TestGraphsEnumeratesForHosts(t *testing.T) {
	a := buildNegator("a")
	b := buildNegator("b")
	rt := runtime.New([]runtime.Graph{a, b})

	graphs := rt.Graphs()
	require.Len(t, graphs, 2)
	require.Equal(t, "a", graphs[0].Name())
	require.NotEqual(t, graphs[0].ID(), graphs[1].ID())
}
