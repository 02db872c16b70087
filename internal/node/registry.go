package node

import (
	"fmt"
	"sort"
	"sync"

	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// Factory constructs a fresh node instance by type name. Constructors
// receive the raw, still-undecoded configuration blob attached to the node
// in the declarative document (§9 construct substitution) and are
// responsible for decoding it into whatever shape they need.
type Factory func(rawConfig any) (any, error)

// Registry is the pluggable node factory (§4.4/§6), grounded on
// Streamy's PluginRegistry: register constructors by name, then resolve an
// instance for a node either from its PreconfiguredInstance or by calling
// the registered constructor.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Factory)}
}

// Register adds a named constructor. Re-registering the same name is an
// error: registries are built once at startup and silent overwrite would
// hide a configuration mistake.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, "", "node type name must not be empty", nil)
	}
	if factory == nil {
		return pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, "", fmt.Sprintf("node type %q: factory must not be nil", name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, "", fmt.Sprintf("node type %q already registered", name), nil)
	}
	r.constructors[name] = factory
	return nil
}

// Build resolves an instance for a node: a non-nil preconfigured takes
// precedence; otherwise the named constructor is invoked with rawConfig.
func (r *Registry) Build(nodeID, typeName string, preconfigured any, rawConfig any) (any, error) {
	if preconfigured != nil {
		return preconfigured, nil
	}

	r.mu.RLock()
	factory, ok := r.constructors[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, nodeID, fmt.Sprintf("no node type %q registered", typeName), nil)
	}

	instance, err := factory(rawConfig)
	if err != nil {
		return nil, pipelineerr.NewConfigurationError(pipelineerr.CodeInvalidNodeType, nodeID, fmt.Sprintf("constructing node type %q", typeName), err)
	}
	return instance, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
