package runtime

import "github.com/google/uuid"

// envelope tags an item materialized into a restart-capable node's replay
// ring with a stable lineage id (SPEC_FULL.md §3's envelope), purely for the
// item lineage sink's benefit — the id never leaves internal/runtime, and
// the item itself still flows downstream as the bare T a node author wrote
// against.
type envelope struct {
	id     uuid.UUID
	parent uuid.UUID
	item   any
}

func newEnvelope(item any) envelope {
	return envelope{id: uuid.New(), item: item}
}

// replayed returns a new envelope for the same underlying item, carrying a
// fresh id whose parent points back to e — reported to the item lineage
// sink by materializingInput.replay as the item crosses into a restarted
// node.
func (e envelope) replayed() envelope {
	return envelope{id: uuid.New(), parent: e.id, item: e.item}
}
