// Package search finds a chain of services that turns a request's provided
// parameters into its resultant.
//
// Three strategies share one state model and one set of termination rules:
//
//   - Optimal explores states best-first by bottleneck utility and keeps the
//     best goal state it sees.
//   - Heuristic orders the same queue by utility plus an estimate of how
//     promising the last applied service is.
//   - Greedy commits to the locally best service at every step and never
//     backtracks.
//
// A state is a path of services and the set of parameters available after
// applying them. States with the same parameter set are interchangeable, so
// only the best utility per set is kept. The utility of a path is the
// minimum utility of its services.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// Kind names a search strategy.
type Kind string

const (
	Optimal   Kind = "optimal"
	Heuristic Kind = "heuristic"
	Greedy    Kind = "greedy"
)

// Kinds lists every strategy in a fixed order.
var Kinds = []Kind{Optimal, Heuristic, Greedy}

// ParseKind accepts a strategy name, case-insensitively. "dijkstra" and
// "astar" are accepted as aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "optimal", "dijkstra":
		return Optimal, nil
	case "heuristic", "astar", "a*":
		return Heuristic, nil
	case "greedy":
		return Greedy, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, name)
}

// Limits bounds a single search.
type Limits struct {
	// MaxIterations caps the number of states popped by the best-first
	// strategies.
	MaxIterations int
	// Timeout is the wall-clock budget of one search.
	Timeout time.Duration
	// MaxGreedySteps caps the number of greedy commitments.
	MaxGreedySteps int
	// GreedyGoalBonus is added to the score of a service that produces the
	// resultant when greedy ranks its options.
	GreedyGoalBonus float64

	// Only the first TraceExploreSteps iterations emit explore events, and
	// only the first TraceExpandSteps emit expand or heuristic_boost events.
	TraceExploreSteps int
	TraceExpandSteps  int
}

// DefaultLimits returns the engine defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:     500000,
		Timeout:           60 * time.Second,
		MaxGreedySteps:    50,
		GreedyGoalBonus:   100,
		TraceExploreSteps: 50,
		TraceExpandSteps:  30,
	}
}

// HeuristicWeights weight the parts of the heuristic estimate for the
// service that led to a state.
type HeuristicWeights struct {
	Goal         float64 `mapstructure:"goal"`
	Reliability  float64 `mapstructure:"reliability"`
	Availability float64 `mapstructure:"availability"`
	ResponseTime float64 `mapstructure:"response_time"`
	Novelty      float64 `mapstructure:"novelty"`
}

// DefaultHeuristicWeights returns the default heuristic weights.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{
		Goal:         0.5,
		Reliability:  0.2,
		Availability: 0.2,
		ResponseTime: 0.05,
		Novelty:      0.05,
	}
}

// UtilityFunc scores one service for the request being searched.
type UtilityFunc func(s *service.Service) float64

// Problem is the input of one search.
type Problem struct {
	Request service.Request

	// Candidates are the services the search may use, sorted by id.
	Candidates []service.Service

	Utility UtilityFunc
}

// Status classifies how a search ended.
type Status string

const (
	// StatusFound means a goal state was reached. The search may still have
	// been stopped early by a limit; see StopReason.
	StatusFound Status = "found"
	// StatusTrivial means the resultant was already provided, so there was
	// nothing to compose.
	StatusTrivial Status = "trivial"
	// StatusNoSolution means every reachable state was explored without
	// reaching the goal.
	StatusNoSolution Status = "no_solution"
	// StatusDeadEnd means greedy ran out of applicable services.
	StatusDeadEnd Status = "dead_end"
	// StatusExhausted means a limit stopped the search before any goal.
	StatusExhausted Status = "exhausted"
	// StatusCancelled means the context ended before any goal.
	StatusCancelled Status = "cancelled"
	// StatusFault means the problem itself was malformed.
	StatusFault Status = "fault"
)

// StopReason records which limit, if any, ended a search early.
type StopReason string

const (
	StopNone       StopReason = ""
	StopIterations StopReason = "iterations"
	StopDeadline   StopReason = "deadline"
	StopSteps      StopReason = "steps"
	StopCancelled  StopReason = "cancelled"
)

// Outcome is the result of one search.
type Outcome struct {
	// Path holds indexes into Problem.Candidates, in application order.
	Path     []int
	Workflow []string
	Utility  float64

	Status     Status
	StopReason StopReason

	// Iterations counts popped states (best-first) or steps (greedy).
	Iterations int

	Trace []Event

	// Err is set when Status is StatusFault.
	Err error
}

// Success reports whether the outcome carries a usable workflow.
func (o *Outcome) Success() bool {
	return o.Status == StatusFound
}

// Strategy is one way of searching a Problem.
type Strategy interface {
	Kind() Kind
	Search(ctx context.Context, p *Problem) Outcome
}

// New returns the strategy of the given kind.
func New(kind Kind, limits Limits, weights HeuristicWeights) (Strategy, error) {
	switch kind {
	case Optimal:
		return &optimalSearch{limits: limits}, nil
	case Heuristic:
		return &heuristicSearch{limits: limits, weights: weights}, nil
	case Greedy:
		return &greedySearch{limits: limits}, nil
	}
	return nil, fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, kind)
}
