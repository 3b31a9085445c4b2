package registry

import (
	"sync/atomic"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
)

type snapshot struct {
	pool       *Pool
	generation uint64
}

// Registry publishes the current pool. Readers get a consistent snapshot;
// a replacement never affects searches already running on the old pool.
type Registry struct {
	current atomic.Pointer[snapshot]
}

// NewRegistry returns a registry holding p, which may be nil.
func NewRegistry(p *Pool) *Registry {
	r := &Registry{}
	if p != nil {
		r.Replace(p)
	}
	return r
}

// Replace publishes p and returns its generation. Generations start at 1
// and increase by one per replacement.
func (r *Registry) Replace(p *Pool) uint64 {
	for {
		old := r.current.Load()
		next := &snapshot{pool: p, generation: 1}
		if old != nil {
			next.generation = old.generation + 1
		}
		if r.current.CompareAndSwap(old, next) {
			return next.generation
		}
	}
}

// Pool returns the current pool, or ErrPoolNotLoaded.
func (r *Registry) Pool() (*Pool, error) {
	s := r.current.Load()
	if s == nil || s.pool == nil {
		return nil, errors.ErrPoolNotLoaded
	}
	return s.pool, nil
}

// Generation returns the generation of the current pool, 0 if none.
func (r *Registry) Generation() uint64 {
	if s := r.current.Load(); s != nil {
		return s.generation
	}
	return 0
}
