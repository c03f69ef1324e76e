package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/task"
)

// incrementTask adds one to every item it sees.
type incrementTask struct{}

func (incrementTask) Execute(item int, h *task.Handle[int]) { h.AddResult(item + 1) }
func (incrementTask) NumThreads() int                       { return 1 }
func (incrementTask) IsStartTask() bool                      { return false }
func (t incrementTask) Copy() task.Task[int, int]            { return t }

func TestManagerChainsTwoTasks(t *testing.T) {
	in := connector.New[int]("in")
	mid := connector.New[int]("mid")
	out := connector.New[int]("out")

	in.AddProducer()
	mid.AddProducer()
	out.AddProducer()
	in.Freeze()
	mid.Freeze()
	out.Freeze()

	a := task.New[int, int]("increment-a", incrementTask{},
		task.WithInput[int, int](in), task.WithOutput[int, int](mid))
	b := task.New[int, int]("increment-b", incrementTask{},
		task.WithInput[int, int](mid), task.WithOutput[int, int](out))

	a.Start()
	b.Start()

	in.Produce(1)
	in.Produce(2)
	in.ProducerFinished()

	got := []int{out.Consume().Item, out.Consume().Item}
	require.ElementsMatch(t, []int{3, 4}, got)

	r := out.Consume()
	require.Equal(t, connector.OutcomeDrained, r.Outcome)

	a.Wait()
	b.Wait()
}

// startOnce emits a fixed number of items, unprompted, then terminates.
type startOnce struct{ n int }

func (s startOnce) Execute(_ int, h *task.Handle[int]) {
	for i := 0; i < s.n; i++ {
		h.AddResult(i)
	}
}
func (startOnce) NumThreads() int            { return 1 }
func (startOnce) IsStartTask() bool          { return true }
func (s startOnce) Copy() task.Task[int, int] { return s }

func TestStartTaskFiresOnceWithNoInput(t *testing.T) {
	out := connector.New[int]("out")
	out.AddProducer()
	out.Freeze()

	m := task.New[int, int]("generator", startOnce{n: 3}, task.WithOutput[int, int](out))
	m.Start()

	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, out.Consume().Item)
	}
	require.ElementsMatch(t, []int{0, 1, 2}, got)

	r := out.Consume()
	require.Equal(t, connector.OutcomeDrained, r.Outcome)

	done := make(chan struct{})
	go func() { m.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager never finished")
	}
}
