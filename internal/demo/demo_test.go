package demo_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/internal/demo"
	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/runtime"
)

func fanoutConfig(kind string) config.DemoConfig {
	return config.DemoConfig{
		Graph:     "packet-fanout",
		Packets:   20,
		Pipelines: 2,
		Pool:      config.PoolConfig{Kind: kind, Capacity: 4},
	}
}

func TestLookupUnknownGraphFailsFast(t *testing.T) {
	_, err := demo.Lookup("no-such-graph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packet-fanout", "error lists known graphs")
}

func TestSyntheticFramesDecode(t *testing.T) {
	frames, err := demo.SyntheticFrames(4)
	require.NoError(t, err)
	require.Len(t, frames, 4)
	for _, frame := range frames {
		assert.Greater(t, len(frame), 34, "ethernet+ipv4 headers at least")
	}
}

func TestPacketFanoutEndToEnd(t *testing.T) {
	for _, kind := range []string{"static", "dynamic"} {
		t.Run(kind, func(t *testing.T) {
			cfg := fanoutConfig(kind)
			builder, err := demo.Lookup(cfg.Graph)
			require.NoError(t, err)

			g, err := builder(cfg, nil)
			require.NoError(t, err)

			rt := runtime.New([]runtime.Graph{g})
			require.NoError(t, rt.Execute())

			frames, err := demo.SyntheticFrames(cfg.Packets)
			require.NoError(t, err)

			go func() {
				for _, frame := range frames {
					g.ProduceData(frame)
				}
				g.FinishProducingData()
			}()

			var tcp, other int
			for {
				r := g.ConsumeData()
				if r.Outcome == connector.OutcomeDrained {
					break
				}
				switch {
				case strings.Contains(r.Item, " tcp "):
					tcp++
				default:
					other++
				}
			}
			rt.Wait()

			assert.Equal(t, cfg.Packets/2, tcp, "alternating synthesis: half TCP")
			assert.Equal(t, cfg.Packets/2, other)

			pools := g.Describe().Pools
			require.Len(t, pools, cfg.Pipelines, "one pool per replica")
			for _, pool := range pools {
				assert.Equalf(t, cfg.Pool.Capacity, pool.Available,
					"pool %s back to full at quiescence", pool.Address)
			}
		})
	}
}
