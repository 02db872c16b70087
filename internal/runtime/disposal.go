package runtime

import (
	"sync"

	"github.com/nodeflow/nodeflow/internal/pipe"
	pipelineerr "github.com/nodeflow/nodeflow/pkg/errors"
)

// disposalRegistry releases resources in LIFO order exactly once at end of
// run (§3 Resource Registration), collecting every disposal failure instead
// of aborting on the first so an early failure never masks a later one.
type disposalRegistry struct {
	mu        sync.Mutex
	disposers []pipe.Disposer
	disposed  bool
}

func newDisposalRegistry() *disposalRegistry { return &disposalRegistry{} }

// register adds d. A registration that arrives after disposeAll has already
// run (a node initializing late during teardown) is disposed immediately
// rather than silently dropped.
func (r *disposalRegistry) register(d pipe.Disposer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		_ = d.Dispose()
		return
	}
	r.disposers = append(r.disposers, d)
}

// disposeAll releases every registered resource in reverse registration
// order and returns an AggregateError if any disposal failed.
func (r *disposalRegistry) disposeAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true

	var errs []error
	for i := len(r.disposers) - 1; i >= 0; i-- {
		if err := r.disposers[i].Dispose(); err != nil {
			errs = append(errs, pipelineerr.NewResourceCapacityError(pipelineerr.CodeDisposalFailed, "", "resource disposal failed", err))
		}
	}
	r.disposers = nil
	return pipelineerr.NewAggregateError(errs)
}
