package composition

import (
	"time"

	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// FailureKind tells callers why a composition did not succeed.
type FailureKind string

const (
	FailureNone           FailureKind = "none"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureUnreachable    FailureKind = "unreachable"
	FailureNoSolution     FailureKind = "no_solution"
	FailureTrivial        FailureKind = "trivial"
	FailureExhausted      FailureKind = "exhausted"
	FailureDeadEnd        FailureKind = "dead_end"
	FailureCancelled      FailureKind = "cancelled"
	FailureInternal       FailureKind = "internal"
)

// Result is the outcome of one composition request under one strategy.
type Result struct {
	RunID     string      `json:"run_id" yaml:"run_id"`
	RequestID string      `json:"request_id" yaml:"request_id"`
	Strategy  search.Kind `json:"strategy" yaml:"strategy"`

	Workflow []string          `json:"workflow" yaml:"workflow"`
	Services []service.Service `json:"services" yaml:"services"`
	QoS      qos.Vector        `json:"qos" yaml:"qos"`
	Utility  float64           `json:"utility" yaml:"utility"`

	Success     bool        `json:"success" yaml:"success"`
	Failure     FailureKind `json:"failure" yaml:"failure"`
	Explanation string      `json:"explanation" yaml:"explanation"`

	StatesExplored  int               `json:"states_explored" yaml:"states_explored"`
	StopReason      search.StopReason `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	ComputationTime time.Duration     `json:"computation_time" yaml:"computation_time"`

	CandidateCount  int    `json:"candidate_count" yaml:"candidate_count"`
	PoolFingerprint string `json:"pool_fingerprint" yaml:"pool_fingerprint"`
	Cached          bool   `json:"cached" yaml:"cached"`

	Trace []search.Event `json:"trace" yaml:"trace"`
	Graph *Graph         `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// Node types in a Graph.
const (
	NodeStart   = "start"
	NodeEnd     = "end"
	NodeService = "service"
)

// Edge types in a Graph.
const (
	EdgeInput  = "input"
	EdgeOutput = "output"
	EdgeChain  = "chain"
)

// Synthetic node ids.
const (
	StartID = "START"
	EndID   = "END"
)

// Graph is a bounded view of the candidate services for rendering.
type Graph struct {
	Nodes []Node   `json:"nodes" yaml:"nodes"`
	Edges []Edge   `json:"edges" yaml:"edges"`
	Path  []string `json:"path" yaml:"path"`
}

// Node is a service, or the START/END marker.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Type  string `json:"type" yaml:"type"`
	Label string `json:"label" yaml:"label"`

	// START carries the first provided parameters, END the resultant.
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`

	Inputs       []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Utility      float64  `json:"utility,omitempty" yaml:"utility,omitempty"`
	Reliability  float64  `json:"reliability,omitempty" yaml:"reliability,omitempty"`
	ResponseTime float64  `json:"response_time,omitempty" yaml:"response_time,omitempty"`

	InPath bool `json:"in_path" yaml:"in_path"`
}

// Edge links two nodes.
type Edge struct {
	From         string   `json:"from" yaml:"from"`
	To           string   `json:"to" yaml:"to"`
	Type         string   `json:"type" yaml:"type"`
	SharedParams []string `json:"shared_params,omitempty" yaml:"shared_params,omitempty"`
	InPath       bool     `json:"in_path" yaml:"in_path"`
}

// Comparison holds one request run under every strategy.
type Comparison struct {
	RequestID string                  `json:"request_id" yaml:"request_id"`
	Results   map[search.Kind]*Result `json:"results" yaml:"results"`
	// QoS compares the optimal workflow (a) with the greedy one (b). It is
	// empty unless both succeeded.
	QoS []qos.Comparison `json:"qos_comparison,omitempty" yaml:"qos_comparison,omitempty"`
}

// StrategyStats summarizes many results of one strategy.
type StrategyStats struct {
	Runs        int     `json:"runs" yaml:"runs"`
	Successes   int     `json:"successes" yaml:"successes"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	// AvgUtility averages over every run, failed runs counting as zero, so
	// it reflects both reach and quality. AvgSuccessUtility is the quality
	// of the compositions found.
	AvgUtility        float64       `json:"avg_utility" yaml:"avg_utility"`
	AvgSuccessUtility float64       `json:"avg_success_utility" yaml:"avg_success_utility"`
	AvgTime           time.Duration `json:"avg_time" yaml:"avg_time"`
	AvgStatesExplored float64       `json:"avg_states_explored" yaml:"avg_states_explored"`
	BestUtilityWins   int           `json:"best_utility_wins" yaml:"best_utility_wins"`
}

// Statistics is keyed by strategy.
type Statistics map[search.Kind]StrategyStats
