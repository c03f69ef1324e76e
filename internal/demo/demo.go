// Package demo bundles the demonstration graphs shipped with the daemon: a
// packet-decoding dataflow that pushes synthetic Ethernet frames through an
// execution pipeline, a per-replica buffer pool, and a protocol fan-out
// bookkeeper, ending in human-readable report lines on the graph output.
package demo

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"graphflow.dev/graphflow/pkg/memory"
	"graphflow.dev/graphflow/pkg/task"
)

// flowInfo is the payload between decode and report: one decoded frame plus
// the pool buffer holding its raw bytes, released by whichever reporter
// consumes the flow.
type flowInfo struct {
	buf        *memory.Data[[]byte]
	proto      string
	src        string
	dst        string
	length     int
	pipelineID int
}

// frameBufSize is the static pool's fixed element size, larger than any
// frame the synthesizer builds.
const frameBufSize = 2048

// decodeTask copies each raw frame into a pool buffer and decodes its
// Ethernet/IPv4/transport headers with gopacket.
type decodeTask struct {
	pool       *memory.Pool[[]byte]
	dynamic    bool
	pipelineID int
}

func (t *decodeTask) Initialize(h *task.Handle[flowInfo]) {
	t.pipelineID = h.PipelineID()
}

func (t *decodeTask) Execute(frame []byte, h *task.Handle[flowInfo]) {
	var d *memory.Data[[]byte]
	if t.dynamic {
		d = t.pool.GetN(nil, len(frame))
	} else {
		d = t.pool.Get(nil)
	}
	copy(d.Value, frame)

	f := flowInfo{buf: d, proto: "other", length: len(frame), pipelineID: t.pipelineID}

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	if ip4, ok := pkt.NetworkLayer().(*layers.IPv4); ok {
		f.src = ip4.SrcIP.String()
		f.dst = ip4.DstIP.String()
	}
	switch tl := pkt.TransportLayer().(type) {
	case *layers.TCP:
		f.proto = "tcp"
		f.src = fmt.Sprintf("%s:%d", f.src, tl.SrcPort)
		f.dst = fmt.Sprintf("%s:%d", f.dst, tl.DstPort)
	case *layers.UDP:
		f.proto = "udp"
		f.src = fmt.Sprintf("%s:%d", f.src, tl.SrcPort)
		f.dst = fmt.Sprintf("%s:%d", f.dst, tl.DstPort)
	}

	h.AddResult(f)
}

func (t *decodeTask) NumThreads() int   { return 1 }
func (t *decodeTask) IsStartTask() bool { return false }

func (t *decodeTask) Copy() task.Task[[]byte, flowInfo] {
	c := *t
	return &c
}

// tcpRule routes TCP flows to the TCP reporter.
type tcpRule struct{}

func (tcpRule) Apply(f flowInfo, _ int, emit func(flowInfo)) {
	if f.proto == "tcp" {
		emit(f)
	}
}

// restRule routes everything the TCP rule did not take, so every flow is
// claimed by exactly one reporter and every buffer gets released.
type restRule struct{}

func (restRule) Apply(f flowInfo, _ int, emit func(flowInfo)) {
	if f.proto != "tcp" {
		emit(f)
	}
}

// reportTask renders one line per flow and returns the frame buffer to its
// pool.
type reportTask struct {
	label string
}

func (t reportTask) Execute(f flowInfo, h *task.Handle[string]) {
	h.AddResult(fmt.Sprintf("[%d] %s %s -> %s len=%d", f.pipelineID, t.label, f.src, f.dst, f.length))
	f.buf.Release()
}

func (t reportTask) NumThreads() int                    { return 1 }
func (t reportTask) IsStartTask() bool                  { return false }
func (t reportTask) Copy() task.Task[flowInfo, string]  { return t }
