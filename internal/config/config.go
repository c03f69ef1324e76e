// Package config loads the daemon's YAML configuration using viper.
package config

import (
	"fmt"
	"strings"

	"graphflow.dev/graphflow/internal/log"
)

// Document is the top-level daemon configuration.
type Document struct {
	Log     log.Config    `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

// MetricsConfig controls the Prometheus exporter endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// DemoConfig parameterizes the bundled demonstration graph.
type DemoConfig struct {
	Graph     string     `mapstructure:"graph"`     // registered demo graph name
	Packets   int        `mapstructure:"packets"`   // synthetic frames to feed
	Pipelines int        `mapstructure:"pipelines"` // execution pipeline replicas
	Pool      PoolConfig `mapstructure:"pool"`
}

// PoolConfig configures the demo graph's packet buffer pool.
type PoolConfig struct {
	Kind     string `mapstructure:"kind"` // static | dynamic
	Capacity int    `mapstructure:"capacity"`
}

// Validate reports the first configuration mistake found, before any graph
// is wired from the document.
func (d *Document) Validate() error {
	if d.Demo.Packets < 0 {
		return fmt.Errorf("demo.packets must be non-negative, got %d", d.Demo.Packets)
	}
	if d.Demo.Pipelines < 1 {
		return fmt.Errorf("demo.pipelines must be at least 1, got %d", d.Demo.Pipelines)
	}
	switch strings.ToLower(d.Demo.Pool.Kind) {
	case "static", "dynamic":
	default:
		return fmt.Errorf("demo.pool.kind must be static or dynamic, got %q", d.Demo.Pool.Kind)
	}
	if d.Demo.Pool.Capacity <= 0 {
		return fmt.Errorf("demo.pool.capacity must be positive, got %d", d.Demo.Pool.Capacity)
	}
	if d.Metrics.Enabled && d.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics.enabled is true")
	}
	return nil
}
