package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type greedySearch struct {
	limits Limits
}

func (s *greedySearch) Kind() Kind { return Greedy }

// Search commits, step by step, to the applicable service with the highest
// utility, plus GreedyGoalBonus when it produces the resultant. Ties go to
// the lower id. It never backtracks.
func (s *greedySearch) Search(ctx context.Context, p *Problem) Outcome {
	sp, err := newSpace(p)
	if err != nil {
		return faultOutcome(err)
	}

	tr := &tracer{}
	tr.add(Event{
		Step:            0,
		Action:          ActionInit,
		Description:     fmt.Sprintf("Greedy search initialized, looking for %s", sp.req.Resultant),
		AvailableParams: firstN(sp.req.Provided, maxTraceParams),
		Target:          sp.req.Resultant,
	})

	params := sp.provided.clone()
	used := newBitset(len(sp.candidates))
	seen := newBitset(len(sp.candidates))
	var (
		path      []int
		utility   float64
		steps     int
		stop      = StopNone
		deadEnd   bool
		deadline  = time.Now().Add(s.limits.Timeout)
		hasBudget = s.limits.Timeout > 0
	)

	for !params.has(sp.goal) {
		if s.limits.MaxGreedySteps > 0 && steps >= s.limits.MaxGreedySteps {
			stop = StopSteps
			break
		}
		if hasBudget && !time.Now().Before(deadline) {
			stop = StopDeadline
			break
		}
		if ctx.Err() != nil {
			stop = StopCancelled
			break
		}
		steps++

		applicable := sp.applicable(params, used)
		if len(applicable) == 0 {
			deadEnd = true
			tr.add(Event{
				Step:        steps,
				Action:      ActionDeadEnd,
				Description: fmt.Sprintf("No applicable services, dead end at step %d", steps),
				Path:        sp.pathIDs(path),
			})
			break
		}

		ranked := s.rank(sp, applicable)
		for _, ci := range applicable {
			seen.set(ci)
		}
		choice := &sp.candidates[ranked[0]]

		alternatives := make([]Alternative, 0, 3)
		for _, ci := range ranked[:min(3, len(ranked))] {
			c := &sp.candidates[ci]
			alternatives = append(alternatives, Alternative{
				ServiceID:    c.svc.ID,
				Utility:      round3(c.utility),
				ProducesGoal: c.producesGoal,
			})
		}
		tr.add(Event{
			Step:         steps,
			Action:       ActionGreedyChoice,
			Description:  fmt.Sprintf("Step %d: selected %s (utility %.2f) from %d candidates", steps, choice.svc.ID, choice.utility, len(applicable)),
			ServiceID:    choice.svc.ID,
			Utility:      choice.utility,
			Candidates:   len(applicable),
			ProducesGoal: choice.producesGoal,
			NewParams:    sp.newParams(choice, params, 3),
			Alternatives: alternatives,
		})

		utility = bottleneck(utility, len(path), choice)
		path = append(path, ranked[0])
		used.set(ranked[0])
		params = params.union(choice.outputs)

		if params.has(sp.goal) {
			ids := sp.pathIDs(path)
			tr.add(Event{
				Step:        steps,
				Action:      ActionGoalFound,
				Description: fmt.Sprintf("Goal reached after %d greedy steps: %s", steps, strings.Join(ids, " -> ")),
				ServiceID:   choice.svc.ID,
				Path:        ids,
				Utility:     utility,
			})
		}
	}

	out := Outcome{Iterations: steps, StopReason: stop}

	switch {
	case params.has(sp.goal) && len(path) > 0:
		out.Status = StatusFound
		out.Path = sp.outcomePath(path)
		out.Workflow = sp.pathIDs(path)
		out.Utility = utility
		tr.add(Event{
			Step:        steps,
			Action:      ActionComplete,
			Description: fmt.Sprintf("Greedy search complete: %d service(s) in %d steps, %d candidates seen", len(path), steps, seen.count()),
			Path:        out.Workflow,
			Utility:     utility,
			Candidates:  seen.count(),
		})
		out.Trace = tr.events
		return out
	case params.has(sp.goal):
		out.Status = StatusTrivial
	case deadEnd:
		out.Status = StatusDeadEnd
	case stop == StopCancelled:
		out.Status = StatusCancelled
	default:
		out.Status = StatusExhausted
	}

	tr.add(Event{
		Step:        steps,
		Action:      ActionFailed,
		Description: failureText("Greedy", out.Status, stop, steps),
		Path:        sp.pathIDs(path),
	})
	out.Trace = tr.events
	return out
}

// rank orders applicable candidates by greedy score, best first. The input
// is in id order and the sort is stable, so ties keep id order.
func (s *greedySearch) rank(sp *space, applicable []int) []int {
	score := func(ci int) float64 {
		c := &sp.candidates[ci]
		if c.producesGoal {
			return c.utility + s.limits.GreedyGoalBonus
		}
		return c.utility
	}

	ranked := make([]int, len(applicable))
	copy(ranked, applicable)
	sort.SliceStable(ranked, func(a, b int) bool {
		return score(ranked[a]) > score(ranked[b])
	})
	return ranked
}
