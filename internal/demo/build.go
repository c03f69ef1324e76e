package demo

import (
	"hash/fnv"
	"strings"

	"github.com/zoobzio/hookz"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/graph"
	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/pipeline"
	"graphflow.dev/graphflow/pkg/rule"
	"graphflow.dev/graphflow/pkg/task"
)

// hashRule partitions frames across replicas by a hash of their bytes, so
// all replicas stay busy without any replica seeing a frame twice.
type hashRule struct {
	n int
}

func (r hashRule) Route(frame []byte, pipelineID int) bool {
	h := fnv.New32a()
	h.Write(frame)
	return int(h.Sum32())%r.n == pipelineID
}

func buildPacketFanout(cfg config.DemoConfig, hooks *hookz.Hooks[connector.Event]) (*graph.Config[[]byte, string], error) {
	kind := memory.Static
	if strings.EqualFold(cfg.Pool.Kind, "dynamic") {
		kind = memory.Dynamic
	}
	dynamic := kind == memory.Dynamic

	alloc := memory.AllocatorFunc[[]byte]{
		New:  func() []byte { return make([]byte, frameBufSize) },
		NewN: func(n int) []byte { return make([]byte, n) },
	}

	outer := graph.New[[]byte, string]("packet-fanout")

	template := func(pipelineID, numPipelines int, address string, in *connector.Connector[[]byte], out *connector.Connector[string]) *graph.Config[[]byte, string] {
		g := graph.New[[]byte, string](address)

		pool := memory.New[[]byte](address+"/framebuf", kind, cfg.Pool.Capacity, alloc,
			memory.WithPipelineID[[]byte](pipelineID))
		g.AddPool(pool)
		outer.AddPool(pool)

		flows := newConn[flowInfo](address+".flows", hooks)
		tcpFlows := newConn[flowInfo](address+".tcp", hooks)
		restFlows := newConn[flowInfo](address+".rest", hooks)

		decode := task.New[[]byte, flowInfo]("decode", &decodeTask{pool: pool, dynamic: dynamic},
			task.WithInput[[]byte, flowInfo](in),
			task.WithOutput[[]byte, flowInfo](flows),
			task.WithPipelineInfo[[]byte, flowInfo](pipelineID, numPipelines),
			task.WithAddress[[]byte, flowInfo](address+"/decode"))
		flows.AddProducer()

		tcpMgr := rule.NewManager[flowInfo, flowInfo]("tcp", tcpRule{}, tcpFlows, nil)
		restMgr := rule.NewManager[flowInfo, flowInfo]("rest", restRule{}, restFlows, nil)
		tcpFlows.AddProducer()
		restFlows.AddProducer()

		classify := task.New[flowInfo, struct{}]("classify",
			rule.NewBookkeeper[flowInfo]("classify", tcpMgr, restMgr),
			task.WithInput[flowInfo, struct{}](flows),
			task.WithPipelineInfo[flowInfo, struct{}](pipelineID, numPipelines),
			task.WithAddress[flowInfo, struct{}](address+"/classify"))

		tcpReport := task.New[flowInfo, string]("report-tcp", reportTask{label: "tcp"},
			task.WithInput[flowInfo, string](tcpFlows),
			task.WithOutput[flowInfo, string](out),
			task.WithMemoryEdge[flowInfo, string](pool.Edge()),
			task.WithPipelineInfo[flowInfo, string](pipelineID, numPipelines),
			task.WithAddress[flowInfo, string](address+"/report-tcp"))
		out.AddProducer()
		pool.AddReleaser()

		restReport := task.New[flowInfo, string]("report-rest", reportTask{label: "other"},
			task.WithInput[flowInfo, string](restFlows),
			task.WithOutput[flowInfo, string](out),
			task.WithMemoryEdge[flowInfo, string](pool.Edge()),
			task.WithPipelineInfo[flowInfo, string](pipelineID, numPipelines),
			task.WithAddress[flowInfo, string](address+"/report-rest"))
		out.AddProducer()
		pool.AddReleaser()

		g.AddTask(decode)
		g.AddTask(classify)
		g.AddTask(tcpReport)
		g.AddTask(restReport)
		g.SetOutput(out)

		g.RecordEdge(graph.EdgeProducerConsumer, "decode", "classify")
		g.RecordEdge(graph.EdgeRule, "classify/tcp", "report-tcp")
		g.RecordEdge(graph.EdgeRule, "classify/rest", "report-rest")
		g.RecordEdge(graph.EdgeMemory, "framebuf", "decode")
		return g
	}

	in := inputConn(outer, hooks)
	out := newConn[string]("packet-fanout.out", hooks)

	pipe := pipeline.New[[]byte, string]("fanout", cfg.Pipelines, template, out,
		[]pipeline.DecompositionRule[[]byte]{hashRule{n: cfg.Pipelines}},
		pipeline.WithAddress[[]byte, string]("fanout"))

	outer.AddTask(task.New[[]byte, struct{}]("fanout", pipe,
		task.WithInput[[]byte, struct{}](in)))
	outer.SetOutput(out)
	outer.RecordEdge(graph.EdgeProducerConsumer, "input", "fanout")
	return outer, nil
}

func newConn[T any](name string, hooks *hookz.Hooks[connector.Event]) *connector.Connector[T] {
	if hooks == nil {
		return connector.New[T](name)
	}
	return connector.New[T](name, connector.WithHooks[T](hooks))
}

func inputConn(g *graph.Config[[]byte, string], hooks *hookz.Hooks[connector.Event]) *connector.Connector[[]byte] {
	if hooks == nil {
		return g.Input()
	}
	return g.Input(connector.WithHooks[[]byte](hooks))
}
