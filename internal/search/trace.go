package search

import "math"

// Trace actions.
const (
	ActionInit           = "init"
	ActionExplore        = "explore"
	ActionExpand         = "expand"
	ActionHeuristicBoost = "heuristic_boost"
	ActionGreedyChoice   = "greedy_choice"
	ActionDeadEnd        = "dead_end"
	ActionGoalFound      = "goal_found"
	ActionComplete       = "complete"
	ActionFailed         = "failed"
)

// maxTraceParams bounds the parameter lists copied into events.
const maxTraceParams = 5

// Event is one entry of a search trace. Step is the iteration (best-first)
// or step (greedy) the event belongs to; init is step 0. Scores are rounded
// to three decimals.
type Event struct {
	Step        int    `json:"step" yaml:"step"`
	Action      string `json:"action" yaml:"action"`
	Description string `json:"description" yaml:"description"`

	ServiceID string   `json:"service_id,omitempty" yaml:"service_id,omitempty"`
	Path      []string `json:"path,omitempty" yaml:"path,omitempty"`

	Utility   float64 `json:"utility,omitempty" yaml:"utility,omitempty"`
	Heuristic float64 `json:"heuristic,omitempty" yaml:"heuristic,omitempty"`
	FScore    float64 `json:"f_score,omitempty" yaml:"f_score,omitempty"`

	AvailableParams []string `json:"available_params,omitempty" yaml:"available_params,omitempty"`
	NewParams       []string `json:"new_params,omitempty" yaml:"new_params,omitempty"`
	Target          string   `json:"target,omitempty" yaml:"target,omitempty"`

	Candidates   int  `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	QueueSize    int  `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
	ProducesGoal bool `json:"produces_goal,omitempty" yaml:"produces_goal,omitempty"`

	// Alternatives are the top-ranked options of a greedy step, the chosen
	// one first.
	Alternatives []Alternative `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// Alternative is one option considered by a greedy step.
type Alternative struct {
	ServiceID    string  `json:"service_id" yaml:"service_id"`
	Utility      float64 `json:"utility" yaml:"utility"`
	ProducesGoal bool    `json:"produces_goal" yaml:"produces_goal"`
}

type tracer struct {
	events []Event
}

func (t *tracer) add(e Event) {
	e.Utility = round3(e.Utility)
	e.Heuristic = round3(e.Heuristic)
	e.FScore = round3(e.FScore)
	t.events = append(t.events, e)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func firstN(names []string, n int) []string {
	if len(names) > n {
		return names[:n]
	}
	return names
}
