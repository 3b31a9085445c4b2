// Package registry holds the immutable, indexed service pool the engine
// searches over, and an atomically replaceable handle to the current pool.
package registry

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/deploymenttheory/go-service-composer/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// Pool is an immutable, id-sorted set of services with parameter indexes.
// It is safe for concurrent use.
type Pool struct {
	services []service.Service
	byID     map[string]int

	// producers maps a parameter to the services that output it, consumers
	// to the services that take it as input. Both hold ascending indexes
	// into services.
	producers map[string][]int
	consumers map[string][]int

	fingerprint string
}

// NewPool validates ids, resolves duplicates and builds the indexes.
//
// When several services share an id, the one with the highest semantic
// version wins. Equal or unparseable versions are an error. QoS values are
// not validated here; loaders do that.
func NewPool(services []service.Service) (*Pool, error) {
	resolved, err := resolveDuplicates(services)
	if err != nil {
		return nil, err
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].ID < resolved[j].ID })

	p := &Pool{
		services:  resolved,
		byID:      make(map[string]int, len(resolved)),
		producers: make(map[string][]int),
		consumers: make(map[string][]int),
	}

	fp := cryptoutil.NewFingerprint()
	for i := range p.services {
		s := &p.services[i]
		s.Inputs = service.NormalizeParams(s.Inputs)
		s.Outputs = service.NormalizeParams(s.Outputs)
		if s.Name == "" {
			s.Name = s.ID
		}

		p.byID[s.ID] = i
		for _, out := range s.Outputs {
			p.producers[out] = append(p.producers[out], i)
		}
		for _, in := range s.Inputs {
			p.consumers[in] = append(p.consumers[in], i)
		}

		fp.AddString(s.ID).AddString(s.Version).AddStrings(s.Inputs).AddStrings(s.Outputs)
		for _, x := range s.QoS.Values() {
			fp.AddFloat(x)
		}
		a := s.Annotation()
		fp.AddFloat(a.Trust()).AddFloat(a.Reputation()).AddFloat(a.Cooperativeness())
	}
	p.fingerprint = fp.Sum()

	return p, nil
}

func resolveDuplicates(services []service.Service) ([]service.Service, error) {
	out := make([]service.Service, 0, len(services))
	index := make(map[string]int, len(services))

	for _, s := range services {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: service with empty id", errors.ErrInvalidService)
		}

		i, seen := index[s.ID]
		if !seen {
			index[s.ID] = len(out)
			out = append(out, s)
			continue
		}

		newer, err := isNewer(s.Version, out[i].Version)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errors.ErrDuplicateService, s.ID, err)
		}
		if newer {
			out[i] = s
		}
	}
	return out, nil
}

// isNewer reports whether candidate is a strictly higher version than
// current.
func isNewer(candidate, current string) (bool, error) {
	if candidate == "" || current == "" {
		return false, fmt.Errorf("both definitions need a version to be told apart")
	}
	cv, err := semver.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("version %q: %w", candidate, err)
	}
	pv, err := semver.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("version %q: %w", current, err)
	}
	if cv.Equal(pv) {
		return false, fmt.Errorf("version %s defined twice", cv)
	}
	return cv.GreaterThan(pv), nil
}

// Pool returns p itself, so a fixed pool can be used wherever a pool source
// is expected.
func (p *Pool) Pool() (*Pool, error) {
	if p == nil {
		return nil, errors.ErrPoolNotLoaded
	}
	return p, nil
}

// Len returns the number of services.
func (p *Pool) Len() int {
	return len(p.services)
}

// Services returns the services sorted by id. The slice must not be
// modified.
func (p *Pool) Services() []service.Service {
	return p.services
}

// At returns the service at index i.
func (p *Pool) At(i int) *service.Service {
	return &p.services[i]
}

// Lookup returns the service with the given id.
func (p *Pool) Lookup(id string) (*service.Service, bool) {
	i, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return &p.services[i], true
}

// Producers returns the indexes of services that output param.
func (p *Pool) Producers(param string) []int {
	return p.producers[param]
}

// Consumers returns the indexes of services that take param as input.
func (p *Pool) Consumers(param string) []int {
	return p.consumers[param]
}

// Parameters returns every parameter named by any service, sorted.
func (p *Pool) Parameters() []string {
	seen := make(map[string]struct{}, len(p.producers)+len(p.consumers))
	for k := range p.producers {
		seen[k] = struct{}{}
	}
	for k := range p.consumers {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fingerprint is a BLAKE2b digest of the pool's content. Two pools with the
// same services have the same fingerprint.
func (p *Pool) Fingerprint() string {
	return p.fingerprint
}
