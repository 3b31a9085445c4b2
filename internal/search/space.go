package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// candidate is a service prepared for one search.
type candidate struct {
	svc     *service.Service
	index   int // position in Problem.Candidates
	utility float64

	inputs       bitset
	outputs      bitset
	outputCount  int
	producesGoal bool
}

// space is everything a strategy needs that does not change during a
// search: the parameter universe, the prepared candidates and the start.
type space struct {
	req        *service.Request
	candidates []candidate // sorted by service id

	params   []string // parameter names by bit index
	provided bitset
	goal     int

	maxResponseTime float64
}

func newSpace(p *Problem) (*space, error) {
	if p.Utility == nil {
		return nil, fmt.Errorf("%w: no utility function", errors.ErrInvalidArgument)
	}

	sp := &space{req: &p.Request}
	index := make(map[string]int)
	intern := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		i := len(sp.params)
		index[name] = i
		sp.params = append(sp.params, name)
		return i
	}

	for _, name := range p.Request.Provided {
		intern(name)
	}
	sp.goal = intern(p.Request.Resultant)

	order := make([]int, len(p.Candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.Candidates[order[a]].ID < p.Candidates[order[b]].ID
	})
	for _, i := range order {
		s := &p.Candidates[i]
		for _, name := range s.Inputs {
			intern(name)
		}
		for _, name := range s.Outputs {
			intern(name)
		}
	}

	width := len(sp.params)
	sp.provided = newBitset(width)
	for _, name := range p.Request.Provided {
		sp.provided.set(index[name])
	}

	sp.candidates = make([]candidate, 0, len(order))
	for _, i := range order {
		s := &p.Candidates[i]
		u := p.Utility(s)
		if math.IsNaN(u) || math.IsInf(u, 0) {
			return nil, fmt.Errorf("%w: utility of service %s is %v", errors.ErrComputation, s.ID, u)
		}

		c := candidate{
			svc:     s,
			index:   i,
			utility: u,
			inputs:  newBitset(width),
			outputs: newBitset(width),
		}
		for _, name := range s.Inputs {
			c.inputs.set(index[name])
		}
		for _, name := range s.Outputs {
			c.outputs.set(index[name])
		}
		c.outputCount = c.outputs.count()
		c.producesGoal = c.outputs.has(sp.goal)
		sp.candidates = append(sp.candidates, c)

		sp.maxResponseTime = max(sp.maxResponseTime, s.QoS.ResponseTime)
	}

	return sp, nil
}

// applicable returns the candidates, in id order, whose inputs are all in
// params and that are not already used.
func (sp *space) applicable(params, used bitset) []int {
	var out []int
	for i := range sp.candidates {
		if used.has(i) {
			continue
		}
		if params.contains(sp.candidates[i].inputs) {
			out = append(out, i)
		}
	}
	return out
}

// names converts a parameter set into sorted names, at most n of them.
func (sp *space) names(b bitset, n int) []string {
	var out []string
	for _, i := range b.members() {
		out = append(out, sp.params[i])
	}
	sort.Strings(out)
	return firstN(out, n)
}

// newParams lists the outputs of c that are not in params.
func (sp *space) newParams(c *candidate, params bitset, n int) []string {
	var out []string
	for _, i := range c.outputs.members() {
		if !params.has(i) {
			out = append(out, sp.params[i])
		}
	}
	sort.Strings(out)
	return firstN(out, n)
}

// pathIDs converts a path of candidate positions into service ids.
func (sp *space) pathIDs(path []int) []string {
	ids := make([]string, len(path))
	for i, ci := range path {
		ids[i] = sp.candidates[ci].svc.ID
	}
	return ids
}

// outcomePath converts candidate positions into Problem.Candidates indexes.
func (sp *space) outcomePath(path []int) []int {
	out := make([]int, len(path))
	for i, ci := range path {
		out[i] = sp.candidates[ci].index
	}
	return out
}

// bottleneck is the utility of extending a path of utility g with c.
func bottleneck(g float64, pathLen int, c *candidate) float64 {
	if pathLen == 0 {
		return c.utility
	}
	return min(g, c.utility)
}

// dedupTable records the best utility seen per parameter set. Entries only
// ever increase.
type dedupTable map[string]float64

// stale reports whether a state with utility g for key has been beaten.
func (d dedupTable) stale(key string, g float64) bool {
	b, ok := d[key]
	return ok && b > g
}

// improve records g for key when it strictly beats the recorded value, and
// reports whether it did.
func (d dedupTable) improve(key string, g float64) bool {
	if b, ok := d[key]; ok && b >= g {
		return false
	}
	d[key] = g
	return true
}

func faultOutcome(err error) Outcome {
	return Outcome{
		Status: StatusFault,
		Err:    err,
		Trace: []Event{{
			Action:      ActionFailed,
			Description: err.Error(),
		}},
	}
}
