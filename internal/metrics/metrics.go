// Package metrics implements Prometheus metrics for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"graphflow.dev/graphflow/pkg/connector"
)

var (
	// ItemsProducedTotal counts items pushed into each connector.
	ItemsProducedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphflow_connector_items_produced_total",
			Help: "Total number of items produced into a connector",
		},
		[]string{"graph", "connector"},
	)

	// ConnectorQueueDepth tracks each connector's buffered item count.
	ConnectorQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_connector_queue_depth",
			Help: "Number of items currently buffered in a connector",
		},
		[]string{"graph", "connector"},
	)

	// ConnectorTerminated marks connectors whose producers have all finished.
	ConnectorTerminated = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_connector_terminated",
			Help: "Whether a connector's input has terminated (0 or 1)",
		},
		[]string{"graph", "connector"},
	)

	// TaskComputeSeconds accumulates time task threads spent inside Execute.
	TaskComputeSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_task_compute_seconds",
			Help: "Cumulative seconds task threads spent executing the task body",
		},
		[]string{"graph", "task"},
	)

	// TaskWaitSeconds accumulates time task threads spent blocked on input.
	TaskWaitSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_task_wait_seconds",
			Help: "Cumulative seconds task threads spent waiting for input",
		},
		[]string{"graph", "task"},
	)

	// PoolAvailable tracks how many elements each memory pool can hand out.
	PoolAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_pool_available",
			Help: "Elements a memory pool can hand out without blocking",
		},
		[]string{"graph", "pool"},
	)

	// PoolCapacity records each memory pool's configured bound.
	PoolCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphflow_pool_capacity",
			Help: "Configured capacity of a memory pool",
		},
		[]string{"graph", "pool"},
	)
)

// ConnectorObserver returns a hookz handler that mirrors one graph's
// connector events into the Prometheus vectors, so the engine core stays
// free of any Prometheus dependency: the bridge subscribes from outside.
func ConnectorObserver(graphName string) func(connector.Event) {
	return func(ev connector.Event) {
		switch ev.Outcome {
		case connector.OutcomeItem:
			ItemsProducedTotal.WithLabelValues(graphName, ev.Name).Inc()
			ConnectorQueueDepth.WithLabelValues(graphName, ev.Name).Set(float64(ev.QueueLen))
		case connector.OutcomeDrained:
			ConnectorTerminated.WithLabelValues(graphName, ev.Name).Set(1)
		}
	}
}
