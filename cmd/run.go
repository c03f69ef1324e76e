package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zoobzio/hookz"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/internal/demo"
	"graphflow.dev/graphflow/internal/log"
	"graphflow.dev/graphflow/internal/metrics"
	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/runtime"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured demo graph to completion",
	Long: `Run the configured demo graph in the foreground: synthesize input
frames, push them through the graph, and print every report line the graph
emits. SIGINT/SIGTERM stops input early and drains the graph cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGraph()
	},
}

func runGraph() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.Init(cfg.Log)
	logger := log.GetLogger()

	var server *metrics.Server
	if cfg.Metrics.Enabled {
		server = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path)
		server.Start()
		defer func() {
			if err := server.Stop(context.Background()); err != nil {
				logger.WithError(err).Warn("metrics server did not stop cleanly")
			}
		}()
	}

	hooks := hookz.New[connector.Event]()
	observe := metrics.ConnectorObserver(cfg.Demo.Graph)
	for _, key := range []hookz.Key{connector.HookProduced, connector.HookTerminated} {
		if _, err := hooks.Hook(key, func(_ context.Context, ev connector.Event) error {
			observe(ev)
			return nil
		}); err != nil {
			return err
		}
	}

	builder, err := demo.Lookup(cfg.Demo.Graph)
	if err != nil {
		return err
	}
	g, err := builder(cfg.Demo, hooks)
	if err != nil {
		return err
	}

	rt := runtime.New([]runtime.Graph{g}, runtime.WithLogger(logger))
	if err := rt.Execute(); err != nil {
		return err
	}

	frames, err := demo.SyntheticFrames(cfg.Demo.Packets)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		defer g.FinishProducingData()
		for i, frame := range frames {
			select {
			case sig := <-sigCh:
				logger.WithField("signal", sig.String()).
					Warnf("stopping input after %d of %d frames", i, len(frames))
				return
			default:
				g.ProduceData(frame)
			}
		}
		logger.Infof("all %d frames produced", len(frames))
	}()

	reports := 0
	for {
		r := g.ConsumeData()
		if r.Outcome == connector.OutcomeDrained {
			break
		}
		reports++
		logger.Info(r.Item)
	}

	rt.Wait()

	for _, snap := range g.Describe().Pools {
		metrics.PoolAvailable.WithLabelValues(cfg.Demo.Graph, snap.Address).Set(float64(snap.Available))
		metrics.PoolCapacity.WithLabelValues(cfg.Demo.Graph, snap.Address).Set(float64(snap.Capacity))
		logger.WithFields(map[string]interface{}{
			"pool":      snap.Address,
			"available": snap.Available,
			"capacity":  snap.Capacity,
		}).Debug("pool at shutdown")
	}

	logger.Infof("graph %s drained: %d reports from %d frames", g.Name(), reports, len(frames))
	return nil
}
