package search

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

type utilities map[string]float64

func (u utilities) fn(s *service.Service) float64 { return u[s.ID] }

func svc(id string, inputs, outputs []string) service.Service {
	return service.New(id, inputs, outputs, qos.Vector{})
}

func problem(provided []string, resultant string, u utilities, services ...service.Service) *Problem {
	return &Problem{
		Request:    service.NewRequest("R", provided, resultant, qos.Vector{}),
		Candidates: services,
		Utility:    u.fn,
	}
}

func strategies(t *testing.T, limits Limits) []Strategy {
	t.Helper()
	var out []Strategy
	for _, k := range Kinds {
		s, err := New(k, limits, DefaultHeuristicWeights())
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func eventsOf(trace []Event, action string) []Event {
	var out []Event
	for _, e := range trace {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{
		"optimal": Optimal, "Dijkstra": Optimal,
		"heuristic": Heuristic, "astar": Heuristic,
		"GREEDY": Greedy,
	} {
		got, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseKind("random")
	assert.ErrorIs(t, err, errors.ErrUnknownStrategy)

	_, err = New("random", DefaultLimits(), DefaultHeuristicWeights())
	assert.ErrorIs(t, err, errors.ErrUnknownStrategy)
}

func TestDirectHit(t *testing.T) {
	p := problem([]string{"x"}, "y", utilities{"S1": 120}, svc("S1", []string{"x"}, []string{"y"}))

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		require.True(t, out.Success(), s.Kind())
		assert.Equal(t, []string{"S1"}, out.Workflow, s.Kind())
		assert.Equal(t, []int{0}, out.Path, s.Kind())
		assert.Equal(t, 120.0, out.Utility, "single-service utility is the service's own, %s", s.Kind())
	}
}

func TestTwoHopChain(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"S1": 70, "S2": 50},
		svc("S2", []string{"y"}, []string{"z"}),
		svc("S1", []string{"x"}, []string{"y"}),
	)

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		require.True(t, out.Success(), s.Kind())
		assert.Equal(t, []string{"S1", "S2"}, out.Workflow, s.Kind())
		assert.Equal(t, []int{1, 0}, out.Path, "path indexes refer to the problem's candidates, %s", s.Kind())
		assert.Equal(t, 50.0, out.Utility, "bottleneck utility, %s", s.Kind())
	}
}

// The locally best first step leads to a weak finish; a weaker first step
// leads to a strong one.
func TestGreedySuboptimality(t *testing.T) {
	u := utilities{"S1": 90, "S2": 60, "S3": 80, "S4": 20}
	p := problem([]string{"x"}, "z", u,
		svc("S1", []string{"x"}, []string{"a"}),
		svc("S2", []string{"x"}, []string{"b"}),
		svc("S3", []string{"b"}, []string{"z"}),
		svc("S4", []string{"a"}, []string{"z"}),
	)
	ctx := context.Background()
	limits := DefaultLimits()

	optimal, _ := New(Optimal, limits, DefaultHeuristicWeights())
	heuristic, _ := New(Heuristic, limits, DefaultHeuristicWeights())
	greedy, _ := New(Greedy, limits, DefaultHeuristicWeights())

	best := optimal.Search(ctx, p)
	require.True(t, best.Success())
	assert.Equal(t, []string{"S2", "S3"}, best.Workflow)
	assert.Equal(t, 60.0, best.Utility)

	guided := heuristic.Search(ctx, p)
	require.True(t, guided.Success())
	assert.Equal(t, best.Utility, guided.Utility)

	quick := greedy.Search(ctx, p)
	require.True(t, quick.Success())
	assert.Equal(t, []string{"S1", "S4"}, quick.Workflow)
	assert.Equal(t, 20.0, quick.Utility)
	assert.Less(t, quick.Utility, best.Utility)
}

func TestNoSolutionWithoutFilter(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"S1": 50}, svc("S1", []string{"a"}, []string{"b"}))

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		assert.False(t, out.Success(), s.Kind())
		assert.Empty(t, out.Workflow, s.Kind())
		last := out.Trace[len(out.Trace)-1]
		assert.Equal(t, ActionFailed, last.Action, s.Kind())
	}

	optimal, _ := New(Optimal, DefaultLimits(), DefaultHeuristicWeights())
	assert.Equal(t, StatusNoSolution, optimal.Search(context.Background(), p).Status)

	greedy, _ := New(Greedy, DefaultLimits(), DefaultHeuristicWeights())
	out := greedy.Search(context.Background(), p)
	assert.Equal(t, StatusDeadEnd, out.Status)
	assert.Len(t, eventsOf(out.Trace, ActionDeadEnd), 1)
}

func TestGreedyDeadEndAfterProgress(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"S1": 80, "S2": 80},
		svc("S1", []string{"x"}, []string{"a"}),
		svc("S2", []string{"q"}, []string{"z"}),
	)
	greedy, _ := New(Greedy, DefaultLimits(), DefaultHeuristicWeights())

	out := greedy.Search(context.Background(), p)
	assert.Equal(t, StatusDeadEnd, out.Status)
	assert.Equal(t, 2, out.Iterations)

	choices := eventsOf(out.Trace, ActionGreedyChoice)
	require.Len(t, choices, 1)
	assert.Equal(t, "S1", choices[0].ServiceID)
}

func TestTrivialRequest(t *testing.T) {
	p := problem([]string{"x", "z"}, "z", utilities{"S1": 50}, svc("S1", []string{"x"}, []string{"z"}))

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		assert.Equal(t, StatusTrivial, out.Status, s.Kind())
		assert.False(t, out.Success(), s.Kind())
	}
}

func TestDeterminism(t *testing.T) {
	u := utilities{}
	var services []service.Service
	// A lattice with many equal-utility routes.
	for _, id := range []string{"A", "B", "C", "D", "E", "F"} {
		u[id] = 50
	}
	services = append(services,
		svc("A", []string{"x"}, []string{"m1"}),
		svc("B", []string{"x"}, []string{"m2"}),
		svc("C", []string{"m1"}, []string{"n"}),
		svc("D", []string{"m2"}, []string{"n"}),
		svc("E", []string{"n"}, []string{"z"}),
		svc("F", []string{"m1", "m2"}, []string{"z"}),
	)
	p := problem([]string{"x"}, "z", u, services...)

	for _, s := range strategies(t, DefaultLimits()) {
		first := s.Search(context.Background(), p)
		second := s.Search(context.Background(), p)
		require.True(t, first.Success(), s.Kind())
		assert.Equal(t, first.Workflow, second.Workflow, s.Kind())
		assert.Equal(t, first.Utility, second.Utility, s.Kind())
		assert.Equal(t, first.Trace, second.Trace, s.Kind())
	}
}

func TestBottleneckAndCycleFreedom(t *testing.T) {
	u := utilities{"S1": 95, "S2": 90, "S3": 40, "S4": 85}
	p := problem([]string{"x"}, "z", u,
		svc("S1", []string{"x"}, []string{"y"}),
		svc("S2", []string{"y"}, []string{"x", "w"}),
		svc("S3", []string{"w"}, []string{"z"}),
		svc("S4", []string{"y", "w"}, []string{"z"}),
	)

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		require.True(t, out.Success(), s.Kind())

		seen := map[string]bool{}
		minimum := math.Inf(1)
		for _, id := range out.Workflow {
			assert.False(t, seen[id], "%s repeats %s", s.Kind(), id)
			seen[id] = true
			minimum = math.Min(minimum, u[id])
		}
		assert.Equal(t, minimum, out.Utility, s.Kind())
	}
}

func TestIterationCap(t *testing.T) {
	u := utilities{"S1": 10, "S2": 90, "S3": 90}
	p := problem([]string{"x"}, "z", u,
		svc("S1", []string{"x"}, []string{"z"}),
		svc("S2", []string{"x"}, []string{"y"}),
		svc("S3", []string{"y"}, []string{"z"}),
	)
	limits := DefaultLimits()

	limits.MaxIterations = 1
	optimal, _ := New(Optimal, limits, DefaultHeuristicWeights())
	out := optimal.Search(context.Background(), p)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, StopIterations, out.StopReason)
	assert.Equal(t, 1, out.Iterations)
	assert.Contains(t, out.Trace[len(out.Trace)-1].Description, "1 iterations")

	limits.MaxIterations = 3
	optimal, _ = New(Optimal, limits, DefaultHeuristicWeights())
	out = optimal.Search(context.Background(), p)
	require.True(t, out.Success(), "a goal found before the cap is kept")
	assert.Equal(t, StopIterations, out.StopReason)
	assert.Equal(t, []string{"S2", "S3"}, out.Workflow)
	assert.Equal(t, 90.0, out.Utility)
}

func TestGreedyStepCap(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"S1": 50, "S2": 50, "S3": 50},
		svc("S1", []string{"x"}, []string{"a"}),
		svc("S2", []string{"a"}, []string{"b"}),
		svc("S3", []string{"b"}, []string{"z"}),
	)
	limits := DefaultLimits()
	limits.MaxGreedySteps = 2
	greedy, _ := New(Greedy, limits, DefaultHeuristicWeights())

	out := greedy.Search(context.Background(), p)
	assert.Equal(t, StatusExhausted, out.Status)
	assert.Equal(t, StopSteps, out.StopReason)
	assert.Equal(t, 2, out.Iterations)
}

func TestDeadlineAndCancellation(t *testing.T) {
	p := problem([]string{"x"}, "y", utilities{"S1": 50}, svc("S1", []string{"x"}, []string{"y"}))

	limits := DefaultLimits()
	limits.Timeout = time.Nanosecond
	for _, s := range strategies(t, limits) {
		out := s.Search(context.Background(), p)
		assert.Equal(t, StatusExhausted, out.Status, s.Kind())
		assert.Equal(t, StopDeadline, out.StopReason, s.Kind())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(ctx, p)
		assert.Equal(t, StatusCancelled, out.Status, s.Kind())
		assert.Zero(t, out.Iterations, s.Kind())
	}
}

func TestNonFiniteUtilityIsAFault(t *testing.T) {
	p := problem([]string{"x"}, "y", utilities{"S1": math.NaN()}, svc("S1", []string{"x"}, []string{"y"}))

	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(context.Background(), p)
		assert.Equal(t, StatusFault, out.Status, s.Kind())
		assert.ErrorIs(t, out.Err, errors.ErrComputation, s.Kind())
	}
}

func TestTraceShape(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"S1": 70, "S2": 50},
		svc("S1", []string{"x"}, []string{"y"}),
		svc("S2", []string{"y"}, []string{"z"}),
	)
	ctx := context.Background()

	expected := map[Kind]string{Optimal: ActionExpand, Heuristic: ActionHeuristicBoost, Greedy: ActionGreedyChoice}
	for _, s := range strategies(t, DefaultLimits()) {
		out := s.Search(ctx, p)
		require.NotEmpty(t, out.Trace)

		assert.Equal(t, ActionInit, out.Trace[0].Action, s.Kind())
		assert.Equal(t, 0, out.Trace[0].Step, s.Kind())
		assert.Equal(t, ActionComplete, out.Trace[len(out.Trace)-1].Action, s.Kind())
		assert.Len(t, eventsOf(out.Trace, ActionGoalFound), 1, s.Kind())
		assert.NotEmpty(t, eventsOf(out.Trace, expected[s.Kind()]), s.Kind())

		goal := eventsOf(out.Trace, ActionGoalFound)[0]
		assert.Equal(t, []string{"S1", "S2"}, goal.Path, s.Kind())
		assert.Equal(t, "S2", goal.ServiceID, s.Kind())
	}
}

func TestTraceBounds(t *testing.T) {
	// Several services are applicable from the start; only one of them
	// leads on to the goal.
	u := utilities{"Z": 50}
	services := []service.Service{svc("Z", []string{"m0"}, []string{"z"})}
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("W%d", i)
		services = append(services, svc(id, []string{"x"}, []string{fmt.Sprintf("m%d", i)}))
		u[id] = 50
	}
	p := problem([]string{"x"}, "z", u, services...)

	limits := DefaultLimits()
	limits.TraceExploreSteps = 2
	limits.TraceExpandSteps = 0
	optimal, _ := New(Optimal, limits, DefaultHeuristicWeights())

	out := optimal.Search(context.Background(), p)
	require.True(t, out.Success())
	assert.Equal(t, []string{"W0", "Z"}, out.Workflow)

	explores := eventsOf(out.Trace, ActionExplore)
	assert.Len(t, explores, 2)
	for _, e := range explores {
		assert.LessOrEqual(t, e.Step, 2)
	}
	assert.Empty(t, eventsOf(out.Trace, ActionExpand))
}

func TestGreedyAlternatives(t *testing.T) {
	p := problem([]string{"x"}, "z", utilities{"A": 30, "B": 60, "C": 60, "D": 10},
		svc("A", []string{"x"}, []string{"z"}),
		svc("B", []string{"x"}, []string{"b"}),
		svc("C", []string{"x"}, []string{"c"}),
		svc("D", []string{"x"}, []string{"d"}),
	)
	greedy, _ := New(Greedy, DefaultLimits(), DefaultHeuristicWeights())

	out := greedy.Search(context.Background(), p)
	require.True(t, out.Success())
	assert.Equal(t, []string{"A"}, out.Workflow, "goal bonus outweighs utility")

	choice := eventsOf(out.Trace, ActionGreedyChoice)[0]
	require.Len(t, choice.Alternatives, 3)
	assert.Equal(t, "A", choice.Alternatives[0].ServiceID)
	assert.Equal(t, "B", choice.Alternatives[1].ServiceID, "ties break by id")
	assert.Equal(t, "C", choice.Alternatives[2].ServiceID)
	assert.True(t, choice.Alternatives[0].ProducesGoal)
}

func TestHeuristicEstimate(t *testing.T) {
	fast := service.New("fast", []string{"x"}, []string{"z", "y"}, qos.Vector{Reliability: 100, Availability: 100, ResponseTime: 0})
	slow := service.New("slow", []string{"x"}, []string{"w"}, qos.Vector{Reliability: 50, Availability: 50, ResponseTime: 200})
	p := problem([]string{"x", "y"}, "z", utilities{}, fast, slow)

	sp, err := newSpace(p)
	require.NoError(t, err)
	w := DefaultHeuristicWeights()

	// Goal, full reliability and availability, fastest, one of two outputs new.
	assert.InDelta(t, 0.5+0.2+0.2+0.05+0.025, w.estimate(sp, &sp.candidates[0], sp.provided), 1e-9)
	// No goal, half reliability and availability, slowest, all outputs new.
	assert.InDelta(t, 0.1+0.1+0+0.05, w.estimate(sp, &sp.candidates[1], sp.provided), 1e-9)
}

func TestDedupTable(t *testing.T) {
	d := dedupTable{}
	assert.True(t, d.improve("k", 10))
	assert.False(t, d.improve("k", 10), "equal utility does not improve")
	assert.False(t, d.improve("k", 5))
	assert.True(t, d.improve("k", 12))
	assert.Equal(t, 12.0, d["k"])

	assert.True(t, d.stale("k", 11))
	assert.False(t, d.stale("k", 12))
	assert.False(t, d.stale("other", 0))
}

func TestBitset(t *testing.T) {
	a := newBitset(130)
	a.set(0)
	a.set(64)
	a.set(129)
	b := newBitset(130)
	b.set(64)

	assert.True(t, a.contains(b))
	assert.False(t, b.contains(a))
	assert.Equal(t, []int{0, 64, 129}, a.members())
	assert.Equal(t, 3, a.count())

	c := b.union(a)
	assert.Equal(t, a.key(), c.key())
	assert.Equal(t, 1, b.count(), "union does not modify the receiver")
}
