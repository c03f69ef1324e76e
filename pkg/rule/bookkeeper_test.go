package rule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/rule"
	"graphflow.dev/graphflow/pkg/task"
)

type evenRule struct{}

func (evenRule) Apply(item int, _ int, emit func(int)) {
	if item%2 == 0 {
		emit(item)
	}
}

type oddRule struct{}

func (oddRule) Apply(item int, _ int, emit func(int)) {
	if item%2 != 0 {
		emit(item)
	}
}

func TestBookkeeperFansOutInOrder(t *testing.T) {
	in := connector.New[int]("in")
	evens := connector.New[int]("evens")
	odds := connector.New[int]("odds")

	in.AddProducer()
	evens.AddProducer()
	odds.AddProducer()
	in.Freeze()
	evens.Freeze()
	odds.Freeze()

	evenMgr := rule.NewManager[int, int]("even", evenRule{}, evens, nil)
	oddMgr := rule.NewManager[int, int]("odd", oddRule{}, odds, nil)
	bk := rule.NewBookkeeper[int]("fan-out", evenMgr, oddMgr)

	m := task.New[int, struct{}]("bookkeeper", bk, task.WithInput[int, struct{}](in))
	m.Start()

	for i := 1; i <= 4; i++ {
		in.Produce(i)
	}
	in.ProducerFinished()

	var gotEvens, gotOdds []int
	for i := 0; i < 2; i++ {
		gotEvens = append(gotEvens, evens.Consume().Item)
	}
	for i := 0; i < 2; i++ {
		gotOdds = append(gotOdds, odds.Consume().Item)
	}
	require.ElementsMatch(t, []int{2, 4}, gotEvens)
	require.ElementsMatch(t, []int{1, 3}, gotOdds)

	require.Equal(t, connector.OutcomeDrained, evens.Consume().Outcome)
	require.Equal(t, connector.OutcomeDrained, odds.Consume().Outcome)

	m.Wait()
}
