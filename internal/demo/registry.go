package demo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zoobzio/hookz"

	"graphflow.dev/graphflow/internal/config"
	"graphflow.dev/graphflow/pkg/connector"
	"graphflow.dev/graphflow/pkg/graph"
)

// Builder constructs one named demo graph from its configuration. hooks may
// be nil; when set, every connector the builder creates publishes its
// lifecycle events there.
type Builder func(cfg config.DemoConfig, hooks *hookz.Hooks[connector.Event]) (*graph.Config[[]byte, string], error)

var (
	regMu    sync.RWMutex
	builders = map[string]Builder{}
)

// Register adds a named builder. Registering the same name twice is a
// programming error.
func Register(name string, b Builder) error {
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := builders[name]; exists {
		return fmt.Errorf("demo graph %q already registered", name)
	}
	builders[name] = b
	return nil
}

// Lookup resolves a builder by name, failing fast with the list of known
// names so a config typo is immediately diagnosable.
func Lookup(name string) (Builder, error) {
	regMu.RLock()
	defer regMu.RUnlock()
	b, exists := builders[name]
	if !exists {
		return nil, fmt.Errorf("demo graph %q not found (registered: %v)", name, names())
	}
	return b, nil
}

func names() []string {
	out := make([]string, 0, len(builders))
	for name := range builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	if err := Register("packet-fanout", buildPacketFanout); err != nil {
		panic(err)
	}
}
