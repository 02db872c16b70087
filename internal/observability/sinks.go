// Package observability defines the engine's optional reporting surfaces
// (§4.8): node metrics, pipeline metrics, item lineage, and pipeline
// lineage. Every sink is resolved from a Factory at run start; a Factory
// field left nil means that surface reports nothing, at zero per-item cost,
// since callers nil-check before invoking a sink.
//
// Grounded on internal/ports/observability.go's MetricsCollector/Tracer
// shape (generic counter/gauge/histogram verbs so an adapter can back onto
// Prometheus, StatsD, or a vendor SDK) and internal/infrastructure/events's
// publish-to-subscribers pattern for the lineage sinks.
package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NodeMetricsSink records node-level signals: items pulled in, items pushed
// out, errors, retries, and per-call processing time.
type NodeMetricsSink interface {
	RecordItemsIn(ctx context.Context, nodeID string, n int)
	RecordItemsOut(ctx context.Context, nodeID string, n int)
	RecordError(ctx context.Context, nodeID string, err error)
	RecordRetry(ctx context.Context, nodeID string, attempt int)
	RecordProcessingTime(ctx context.Context, nodeID string, d time.Duration)
}

// PipelineMetricsSink records run-level signals: end-to-end duration,
// overall success/failure, and how many nodes were restarted.
type PipelineMetricsSink interface {
	RecordPipelineStart(ctx context.Context, runID uuid.UUID)
	RecordPipelineEnd(ctx context.Context, runID uuid.UUID, d time.Duration, success bool, restartedNodes int)
}

// ItemLineageSink records the parent/child relation between an item that
// enters a materializing or resilient node and the item(s) that replay it
// after a restart (§4.7's runtime.envelope lineage id).
type ItemLineageSink interface {
	RecordLineage(ctx context.Context, nodeID string, parent, child uuid.UUID)
}

// PipelineLineageSink records structural lineage at the pipeline level: a
// node restarting, or a node being skipped via ContinueWithoutNode, reshapes
// which upstream items could have reached a given downstream item.
type PipelineLineageSink interface {
	RecordNodeRestarted(ctx context.Context, runID uuid.UUID, nodeID string, attempt int)
	RecordNodeSkipped(ctx context.Context, runID uuid.UUID, nodeID string, reason error)
}

// Factory resolves the four optional sinks for a single run. A nil Factory,
// or a nil field within one, means that surface is not reported — callers
// nil-check the specific sink before using it, so absence costs nothing on
// the hot path.
type Factory struct {
	NodeMetrics     NodeMetricsSink
	PipelineMetrics PipelineMetricsSink
	ItemLineage     ItemLineageSink
	PipelineLineage PipelineLineageSink
}

// Resolve returns f's sinks, or the zero Factory (all nil) if f is nil.
func Resolve(f *Factory) Factory {
	if f == nil {
		return Factory{}
	}
	return *f
}
