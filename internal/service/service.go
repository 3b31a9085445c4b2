// Package service defines the records the composition engine works on: a
// service's parameter contract and QoS, and a composition request.
package service

import (
	"sort"

	"github.com/deploymenttheory/go-service-composer/internal/qos"
)

// Service describes one independently-owned service in the pool.
//
// A Service is built once when the pool is loaded and is never mutated by
// the engine.
type Service struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty" validate:"omitempty,semver"`

	// Inputs and Outputs are parameter names. They are expected to be
	// disjoint but this is not enforced.
	Inputs  []string `json:"inputs" yaml:"inputs" validate:"dive,required"`
	Outputs []string `json:"outputs" yaml:"outputs" validate:"dive,required"`

	QoS qos.Vector `json:"qos" yaml:"qos"`

	// Annotations carries optional social metadata. Nil is treated as
	// NoAnnotations.
	Annotations AnnotationProvider `json:"-" yaml:"-" validate:"-"`
}

// New builds a Service with normalized (sorted, deduplicated) parameter sets.
func New(id string, inputs, outputs []string, v qos.Vector) Service {
	return Service{
		ID:      id,
		Name:    id,
		Inputs:  NormalizeParams(inputs),
		Outputs: NormalizeParams(outputs),
		QoS:     v,
	}
}

// WithAnnotations returns a copy of s carrying the given annotations.
func (s Service) WithAnnotations(a AnnotationProvider) Service {
	s.Annotations = a
	return s
}

// Annotation returns the service's annotation provider, never nil.
func (s *Service) Annotation() AnnotationProvider {
	if s.Annotations == nil {
		return NoAnnotations{}
	}
	return s.Annotations
}

// Produces reports whether the service outputs param.
func (s *Service) Produces(param string) bool {
	for _, out := range s.Outputs {
		if out == param {
			return true
		}
	}
	return false
}

// AcceptsAll reports whether every input of the service is in available.
func (s *Service) AcceptsAll(available map[string]struct{}) bool {
	for _, in := range s.Inputs {
		if _, ok := available[in]; !ok {
			return false
		}
	}
	return true
}

// Request asks for a chain of services turning Provided into Resultant.
type Request struct {
	ID        string   `json:"id" yaml:"id" validate:"required"`
	Provided  []string `json:"provided" yaml:"provided" validate:"dive,required"`
	Resultant string   `json:"resultant" yaml:"resultant" validate:"required"`

	// Constraints are thresholds: <= for response time and latency, >= for
	// everything else.
	Constraints qos.Vector `json:"constraints" yaml:"constraints"`
}

// NewRequest builds a Request with a normalized provided set.
func NewRequest(id string, provided []string, resultant string, constraints qos.Vector) Request {
	return Request{
		ID:          id,
		Provided:    NormalizeParams(provided),
		Resultant:   resultant,
		Constraints: constraints,
	}
}

// ProvidedSet returns the provided parameters as a set.
func (r *Request) ProvidedSet() map[string]struct{} {
	return ParamSet(r.Provided)
}

// NormalizeParams returns a sorted copy of params with blanks and duplicates
// removed.
func NormalizeParams(params []string) []string {
	if len(params) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(params))
	out := make([]string, 0, len(params))
	for _, p := range params {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ParamSet converts a parameter list into a set.
func ParamSet(params []string) map[string]struct{} {
	set := make(map[string]struct{}, len(params))
	for _, p := range params {
		set[p] = struct{}{}
	}
	return set
}
