// Package reachability narrows a service pool to the candidates that can
// take part in a composition for a given request.
//
// A service is kept when it is reachable from the provided parameters
// (forward closure) and contributes to producing the resultant (backward
// closure). When that intersection is too small to search meaningfully the
// union is used instead. If the forward closure never yields the resultant
// the request is unsatisfiable and no candidates are returned.
package reachability

import (
	"github.com/deploymenttheory/go-service-composer/internal/registry"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// DefaultMinViable is the intersection size below which the union is used.
const DefaultMinViable = 3

// Result is the outcome of filtering a pool for one request.
type Result struct {
	// Services are the candidates, sorted by id.
	Services []service.Service

	// Reachable is false when the resultant cannot be produced at all.
	Reachable bool

	// Fallback is true when the intersection was too small and the union
	// of both closures was returned.
	Fallback bool

	ForwardCount    int
	BackwardCount   int
	ReachableParams int
}

// Filter computes the candidate set for req over pool. A negative
// minViable is treated as DefaultMinViable.
func Filter(pool *registry.Pool, req service.Request, minViable int) Result {
	if minViable < 0 {
		minViable = DefaultMinViable
	}

	forward, available := forwardClosure(pool, req.Provided)
	res := Result{
		ForwardCount:    count(forward),
		ReachableParams: len(available),
	}
	if _, ok := available[req.Resultant]; !ok {
		return res
	}
	res.Reachable = true

	backward := backwardClosure(pool, req.Provided, req.Resultant)
	res.BackwardCount = count(backward)

	selected := make([]bool, pool.Len())
	n := 0
	for i := range selected {
		if forward[i] && backward[i] {
			selected[i] = true
			n++
		}
	}
	if n < minViable {
		res.Fallback = true
		for i := range selected {
			selected[i] = forward[i] || backward[i]
		}
	}

	// Pool order is id order, so walking indexes keeps the output sorted.
	for i, ok := range selected {
		if ok {
			res.Services = append(res.Services, *pool.At(i))
		}
	}
	return res
}

// forwardClosure admits every service whose inputs all become available,
// starting from provided, until nothing changes.
func forwardClosure(pool *registry.Pool, provided []string) ([]bool, map[string]struct{}) {
	admitted := make([]bool, pool.Len())
	satisfied := make([]int, pool.Len())
	available := make(map[string]struct{}, len(provided))

	var frontier []string
	makeAvailable := func(p string) {
		if _, ok := available[p]; ok {
			return
		}
		available[p] = struct{}{}
		frontier = append(frontier, p)
	}
	admit := func(i int) {
		admitted[i] = true
		for _, out := range pool.At(i).Outputs {
			makeAvailable(out)
		}
	}

	for _, p := range provided {
		makeAvailable(p)
	}
	for i := 0; i < pool.Len(); i++ {
		if len(pool.At(i).Inputs) == 0 {
			admit(i)
		}
	}

	for len(frontier) > 0 {
		p := frontier[0]
		frontier = frontier[1:]
		for _, i := range pool.Consumers(p) {
			if admitted[i] {
				continue
			}
			satisfied[i]++
			if satisfied[i] == len(pool.At(i).Inputs) {
				admit(i)
			}
		}
	}
	return admitted, available
}

// backwardClosure admits every producer of a needed parameter, starting
// from the resultant. Inputs of admitted services that are not provided
// become needed in turn.
func backwardClosure(pool *registry.Pool, provided []string, resultant string) []bool {
	admitted := make([]bool, pool.Len())
	have := service.ParamSet(provided)
	needed := map[string]struct{}{resultant: {}}
	frontier := []string{resultant}

	for len(frontier) > 0 {
		p := frontier[0]
		frontier = frontier[1:]
		for _, i := range pool.Producers(p) {
			if admitted[i] {
				continue
			}
			admitted[i] = true
			for _, in := range pool.At(i).Inputs {
				if _, ok := needed[in]; ok {
					continue
				}
				if _, ok := have[in]; ok {
					continue
				}
				needed[in] = struct{}{}
				frontier = append(frontier, in)
			}
		}
	}
	return admitted
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
