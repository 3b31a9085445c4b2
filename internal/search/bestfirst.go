package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

type optimalSearch struct {
	limits Limits
}

func (s *optimalSearch) Kind() Kind { return Optimal }

func (s *optimalSearch) Search(ctx context.Context, p *Problem) Outcome {
	sp, err := newSpace(p)
	if err != nil {
		return faultOutcome(err)
	}
	return bestFirst(ctx, sp, s.limits, bestFirstConfig{
		label:       "Optimal",
		boostAction: ActionExpand,
	})
}

type heuristicSearch struct {
	limits  Limits
	weights HeuristicWeights
}

func (s *heuristicSearch) Kind() Kind { return Heuristic }

func (s *heuristicSearch) Search(ctx context.Context, p *Problem) Outcome {
	sp, err := newSpace(p)
	if err != nil {
		return faultOutcome(err)
	}
	w := s.weights
	return bestFirst(ctx, sp, s.limits, bestFirstConfig{
		label:       "Heuristic",
		boostAction: ActionHeuristicBoost,
		estimate: func(c *candidate, before bitset) float64 {
			return w.estimate(sp, c, before)
		},
	})
}

// estimate scores how promising c is, given the parameters available
// before it was applied.
func (w HeuristicWeights) estimate(sp *space, c *candidate, before bitset) float64 {
	goal := 0.0
	if c.producesGoal {
		goal = 1
	}

	rt := 0.0
	if sp.maxResponseTime > 0 {
		rt = 1 - c.svc.QoS.ResponseTime/sp.maxResponseTime
	}

	fresh := 0
	for _, i := range c.outputs.members() {
		if !before.has(i) {
			fresh++
		}
	}
	novelty := float64(fresh) / float64(max(c.outputCount, 1))

	return goal*w.Goal +
		c.svc.QoS.Reliability/100*w.Reliability +
		c.svc.QoS.Availability/100*w.Availability +
		rt*w.ResponseTime +
		novelty*w.Novelty
}

type bestFirstConfig struct {
	label       string
	boostAction string
	// estimate is nil for the optimal strategy.
	estimate func(c *candidate, before bitset) float64
}

// bestFirst is the driver shared by the optimal and heuristic strategies.
// They differ only in queue priority: g alone, or g plus the estimate.
func bestFirst(ctx context.Context, sp *space, limits Limits, cfg bestFirstConfig) Outcome {
	tr := &tracer{}
	best := dedupTable{}
	queue := &frontier{}

	start := &state{
		params: sp.provided,
		used:   newBitset(len(sp.candidates)),
		key:    sp.provided.key(),
	}
	best[start.key] = 0
	queue.push(start, 0)

	tr.add(Event{
		Step:            0,
		Action:          ActionInit,
		Description:     fmt.Sprintf("%s search initialized with %d provided parameters", cfg.label, len(sp.req.Provided)),
		AvailableParams: firstN(sp.req.Provided, maxTraceParams),
		Target:          sp.req.Resultant,
		QueueSize:       1,
	})

	var (
		found       *state
		foundG      = math.Inf(-1)
		trivial     bool
		iterations  int
		stop        = StopNone
		seen        = newBitset(len(sp.candidates))
		deadline    = time.Now().Add(limits.Timeout)
		hasDeadline = limits.Timeout > 0
	)

	for queue.len() > 0 {
		if limits.MaxIterations > 0 && iterations >= limits.MaxIterations {
			stop = StopIterations
			break
		}
		if hasDeadline && !time.Now().Before(deadline) {
			stop = StopDeadline
			break
		}
		if ctx.Err() != nil {
			stop = StopCancelled
			break
		}
		iterations++

		cur := queue.pop()
		if best.stale(cur.key, cur.g) {
			continue
		}

		if cur.params.has(sp.goal) {
			if len(cur.path) == 0 {
				trivial = true
				continue
			}
			if cur.g > foundG {
				found, foundG = cur, cur.g
				path := sp.pathIDs(cur.path)
				tr.add(Event{
					Step:        iterations,
					Action:      ActionGoalFound,
					Description: fmt.Sprintf("Goal reached: %s", strings.Join(path, " -> ")),
					ServiceID:   path[len(path)-1],
					Path:        path,
					Utility:     cur.g,
					Heuristic:   cur.h,
					FScore:      cur.g + cur.h,
				})
			}
			continue
		}

		applicable := sp.applicable(cur.params, cur.used)
		if len(applicable) > 0 && iterations <= limits.TraceExploreSteps {
			tr.add(Event{
				Step:        iterations,
				Action:      ActionExplore,
				Description: fmt.Sprintf("Exploring state with %d parameters, %d candidates", cur.params.count(), len(applicable)),
				Path:        sp.pathIDs(cur.path),
				Utility:     cur.g,
				FScore:      cur.g + cur.h,
				Candidates:  len(applicable),
				QueueSize:   queue.len(),
			})
		}

		for _, ci := range applicable {
			c := &sp.candidates[ci]
			seen.set(ci)

			g := bottleneck(cur.g, len(cur.path), c)
			params := cur.params.union(c.outputs)
			key := params.key()
			if !best.improve(key, g) {
				continue
			}

			h := 0.0
			if cfg.estimate != nil {
				h = cfg.estimate(c, cur.params)
			}

			used := cur.used.clone()
			used.set(ci)
			path := make([]int, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, ci)

			queue.push(&state{g: g, h: h, path: path, used: used, params: params, key: key}, g+h)

			if iterations <= limits.TraceExpandSteps && c.producesGoal {
				tr.add(Event{
					Step:         iterations,
					Action:       cfg.boostAction,
					Description:  fmt.Sprintf("Service %s can produce the target (utility %.2f)", c.svc.ID, c.utility),
					ServiceID:    c.svc.ID,
					Utility:      c.utility,
					Heuristic:    h,
					FScore:       g + h,
					NewParams:    sp.newParams(c, cur.params, 3),
					ProducesGoal: true,
				})
			}
		}
	}

	out := Outcome{Iterations: iterations, StopReason: stop}

	if found != nil {
		out.Status = StatusFound
		out.Path = sp.outcomePath(found.path)
		out.Workflow = sp.pathIDs(found.path)
		out.Utility = found.g
		tr.add(Event{
			Step:        iterations,
			Action:      ActionComplete,
			Description: fmt.Sprintf("%s search complete: %d service(s), utility %.3f, %d services evaluated", cfg.label, len(found.path), found.g, seen.count()),
			Path:        out.Workflow,
			Utility:     found.g,
			Candidates:  seen.count(),
		})
		out.Trace = tr.events
		return out
	}

	switch {
	case trivial:
		out.Status = StatusTrivial
	case stop == StopCancelled:
		out.Status = StatusCancelled
	case stop != StopNone:
		out.Status = StatusExhausted
	default:
		out.Status = StatusNoSolution
	}
	tr.add(Event{
		Step:        iterations,
		Action:      ActionFailed,
		Description: failureText(cfg.label, out.Status, stop, iterations),
	})
	out.Trace = tr.events
	return out
}

func failureText(label string, status Status, stop StopReason, iterations int) string {
	switch status {
	case StatusTrivial:
		return fmt.Sprintf("%s search: the resultant is already provided, nothing to compose", label)
	case StatusCancelled:
		return fmt.Sprintf("%s search cancelled after %d iterations", label, iterations)
	case StatusExhausted:
		return fmt.Sprintf("%s search stopped by %s limit after %d iterations without a composition", label, stop, iterations)
	case StatusDeadEnd:
		return fmt.Sprintf("%s search reached a dead end after %d steps", label, iterations)
	}
	return fmt.Sprintf("No composition found after %d iterations", iterations)
}
