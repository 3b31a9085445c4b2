package composition

import (
	"math"
	"sort"

	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// DefaultGraphNodeLimit caps the service nodes in a Graph.
const DefaultGraphNodeLimit = 40

const (
	graphStartParams = 5
	graphNodeParams  = 3
	graphEdgeParams  = 2
)

// buildGraph renders the candidates most relevant for display: the limit
// most reliable ones, ties by id. When workflow is non-empty the nodes and
// edges on it are marked.
func buildGraph(req service.Request, candidates []service.Service, utility func(*service.Service) float64, workflow []string, limit int) *Graph {
	if limit <= 0 {
		limit = DefaultGraphNodeLimit
	}

	shown := make([]*service.Service, len(candidates))
	for i := range candidates {
		shown[i] = &candidates[i]
	}
	sort.SliceStable(shown, func(i, j int) bool {
		if shown[i].QoS.Reliability != shown[j].QoS.Reliability {
			return shown[i].QoS.Reliability > shown[j].QoS.Reliability
		}
		return shown[i].ID < shown[j].ID
	})
	shown = shown[:min(limit, len(shown))]

	g := &Graph{
		Nodes: make([]Node, 0, len(shown)+2),
		Path:  append([]string{}, workflow...),
	}

	g.Nodes = append(g.Nodes, Node{
		ID:     StartID,
		Type:   NodeStart,
		Label:  StartID,
		Params: head(req.Provided, graphStartParams),
	})
	for _, s := range shown {
		g.Nodes = append(g.Nodes, Node{
			ID:           s.ID,
			Type:         NodeService,
			Label:        s.ID,
			Inputs:       head(s.Inputs, graphNodeParams),
			Outputs:      head(s.Outputs, graphNodeParams),
			Utility:      roundTo(utility(s), 2),
			Reliability:  roundTo(s.QoS.Reliability, 1),
			ResponseTime: roundTo(s.QoS.ResponseTime, 1),
		})
	}
	g.Nodes = append(g.Nodes, Node{
		ID:     EndID,
		Type:   NodeEnd,
		Label:  EndID,
		Params: []string{req.Resultant},
	})

	provided := req.ProvidedSet()
	for _, s := range shown {
		if s.AcceptsAll(provided) {
			g.Edges = append(g.Edges, Edge{From: StartID, To: s.ID, Type: EdgeInput})
		}
		if s.Produces(req.Resultant) {
			g.Edges = append(g.Edges, Edge{From: s.ID, To: EndID, Type: EdgeOutput})
		}
		outputs := service.ParamSet(s.Outputs)
		for _, t := range shown {
			if t.ID == s.ID {
				continue
			}
			if shared := sharedParams(outputs, t.Inputs); len(shared) > 0 {
				g.Edges = append(g.Edges, Edge{
					From:         s.ID,
					To:           t.ID,
					Type:         EdgeChain,
					SharedParams: head(shared, graphEdgeParams),
				})
			}
		}
	}

	if len(workflow) > 0 {
		markPath(g, workflow)
	}
	return g
}

// markPath flags the nodes of workflow, plus START and END, and every edge
// whose endpoints are both on the path.
func markPath(g *Graph, workflow []string) {
	onPath := service.ParamSet(workflow)
	onPath[StartID] = struct{}{}
	onPath[EndID] = struct{}{}

	for i := range g.Nodes {
		_, g.Nodes[i].InPath = onPath[g.Nodes[i].ID]
	}
	for i := range g.Edges {
		_, from := onPath[g.Edges[i].From]
		_, to := onPath[g.Edges[i].To]
		g.Edges[i].InPath = from && to
	}
}

// sharedParams returns the inputs, in order, that appear in outputs.
func sharedParams(outputs map[string]struct{}, inputs []string) []string {
	var shared []string
	for _, in := range inputs {
		if _, ok := outputs[in]; ok {
			shared = append(shared, in)
		}
	}
	return shared
}

func head(params []string, n int) []string {
	if len(params) <= n {
		return append([]string{}, params...)
	}
	return append([]string{}, params[:n]...)
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
