package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads and validates the daemon configuration at path. An empty path
// returns the defaults.
func Load(path string) (*Document, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var doc Document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &doc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("log.time", "2006-01-02 15:04:05.000")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9091")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("demo.graph", "packet-fanout")
	v.SetDefault("demo.packets", 100)
	v.SetDefault("demo.pipelines", 2)
	v.SetDefault("demo.pool.kind", "static")
	v.SetDefault("demo.pool.capacity", 16)
}
