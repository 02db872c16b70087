package runtime

import (
	"context"

	"github.com/nodeflow/nodeflow/internal/observability"
	"github.com/nodeflow/nodeflow/internal/pipe"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// materializingInput wraps one of a node's input pipes, recording every
// item pulled into a bounded ring so a RestartNode decision (§4.7) can
// replay them into a freshly re-instantiated node without re-consuming
// upstream. cap <= 0 means the node carries no materialization bound (no
// restart capability was configured) and nothing is recorded.
type materializingInput struct {
	upstream pipe.Pipe[any]
	nodeID   string
	cap      int
	ring     []envelope
	ctx      context.Context
	lineage  observability.ItemLineageSink
}

func newMaterializingInput(ctx context.Context, upstream pipe.Pipe[any], nodeID string, cap int, lineage observability.ItemLineageSink) *materializingInput {
	return &materializingInput{upstream: upstream, nodeID: nodeID, cap: cap, ctx: ctx, lineage: lineage}
}

// Iterate satisfies pipe.Pipe[any]; materializingInput is itself fed back in
// as the upstream half of the pipe returned by replay.
func (m *materializingInput) Iterate(ctx context.Context) (any, bool, error) {
	item, ok, err := m.upstream.Iterate(ctx)
	if err != nil || !ok {
		return item, ok, err
	}
	if m.cap > 0 {
		if len(m.ring) >= m.cap {
			return nil, false, pipelineerr.NewResourceCapacityError(pipelineerr.CodeMaterializationCapExceed, m.nodeID,
				"materialization ring exceeded maxMaterializedItems without a restart to clear it", nil)
		}
		m.ring = append(m.ring, newEnvelope(item))
	}
	return item, true, nil
}

func (m *materializingInput) Dispose() error { return m.upstream.Dispose() }

// replay returns a pipe that first yields everything currently buffered,
// then resumes pulling from upstream (continuing to record into the, now
// empty, ring). Called once per RestartNode decision; each buffered item is
// re-enveloped so the lineage sink, if configured, sees the replay as a
// child of the item's original delivery.
func (m *materializingInput) replay() pipe.Pipe[any] {
	items := make([]any, len(m.ring))
	for i, e := range m.ring {
		next := e.replayed()
		if m.lineage != nil {
			m.lineage.RecordLineage(m.ctx, m.nodeID, e.id, next.id)
		}
		items[i] = next.item
	}
	buffered := pipe.FromSlice(items)
	m.ring = nil
	return pipe.Merge([]pipe.Pipe[any]{buffered, m}, pipe.Concatenate)
}
