package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipe"
)

// runState holds the state shared by every node in a single Run: the
// cancellable context, the base logger, caller-supplied params, the
// run-scoped items bag, the LIFO disposal registry, the run's id, and its
// resolved observability sinks.
type runState struct {
	ctx      context.Context
	logger   zerolog.Logger
	params   map[string]any
	items    sync.Map
	disposal *disposalRegistry
	runID    uuid.UUID
	obs      observability.Factory
}

// Context is the per-node view the Scheduler hands to a node.Runner. It
// implements node.RunContext (NodeID/Context) and pipe.ResourceRegistry
// (Register), so a Stream pipe a node constructs during Initialize or
// ExecuteItem can register its own goroutine for disposal at end of run.
type Context struct {
	nodeID string
	run    *runState
}

// NodeID satisfies node.RunContext.
func (c *Context) NodeID() string { return c.nodeID }

// Context satisfies node.RunContext.
func (c *Context) Context() context.Context { return c.run.ctx }

// Register satisfies pipe.ResourceRegistry.
func (c *Context) Register(d pipe.Disposer) { c.run.disposal.register(d) }

// Logger returns a logger tagged with this node's id.
func (c *Context) Logger() zerolog.Logger {
	return c.run.logger.With().Str("node", c.nodeID).Logger()
}

// Param returns a run-level parameter supplied via RunOptions.Params.
func (c *Context) Param(key string) (any, bool) {
	v, ok := c.run.params[key]
	return v, ok
}

// SetItem and Item expose the run-scoped items bag (§3): arbitrary state a
// node can stash for itself (read back after a restart) or for another node
// to inspect, keyed by name and shared across the whole run.
func (c *Context) SetItem(key string, value any) { c.run.items.Store(key, value) }
func (c *Context) Item(key string) (any, bool)   { return c.run.items.Load(key) }
