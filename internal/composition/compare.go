package composition

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// CompareAll runs every strategy on req concurrently, against one pool
// snapshot.
func (c *Composer) CompareAll(ctx context.Context, req service.Request) (*Comparison, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := prepare(req)
	if err != nil {
		return nil, err
	}
	pool, err := c.source.Pool()
	if err != nil {
		return nil, err
	}

	strategies := make([]search.Strategy, len(search.Kinds))
	for i, kind := range search.Kinds {
		if strategies[i], err = search.New(kind, c.limits, c.heuristic); err != nil {
			return nil, fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
		}
	}

	results := make([]*Result, len(strategies))
	var g errgroup.Group
	for i, strategy := range strategies {
		i, strategy := i, strategy
		g.Go(func() error {
			results[i] = c.compose(ctx, pool, req, strategy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := &Comparison{
		RequestID: req.ID,
		Results:   make(map[search.Kind]*Result, len(results)),
	}
	for _, res := range results {
		cmp.Results[res.Strategy] = res
	}
	if opt, greedy := cmp.Results[search.Optimal], cmp.Results[search.Greedy]; opt.Success && greedy.Success {
		cmp.QoS = qos.Compare(opt.QoS, greedy.QoS)
	}
	return cmp, nil
}

// Summarize aggregates comparisons into per-strategy statistics. On each
// comparison the successful strategies with the highest utility score a
// win.
func Summarize(comparisons []*Comparison) Statistics {
	type totals struct {
		runs, successes, wins int
		utility, states       float64
		successUtility        float64
		elapsed               time.Duration
	}
	sums := make(map[search.Kind]*totals)

	for _, cmp := range comparisons {
		if cmp == nil {
			continue
		}
		best, found := 0.0, false
		for _, res := range cmp.Results {
			if res.Success && (!found || res.Utility > best) {
				best, found = res.Utility, true
			}
		}
		for kind, res := range cmp.Results {
			t, ok := sums[kind]
			if !ok {
				t = &totals{}
				sums[kind] = t
			}
			t.runs++
			t.utility += res.Utility
			t.states += float64(res.StatesExplored)
			t.elapsed += res.ComputationTime
			if res.Success {
				t.successes++
				t.successUtility += res.Utility
				if found && res.Utility == best {
					t.wins++
				}
			}
		}
	}

	stats := make(Statistics, len(sums))
	for kind, t := range sums {
		n := float64(t.runs)
		successUtility := 0.0
		if t.successes > 0 {
			successUtility = t.successUtility / float64(t.successes)
		}
		stats[kind] = StrategyStats{
			Runs:              t.runs,
			Successes:         t.successes,
			SuccessRate:       float64(t.successes) / n * 100,
			AvgUtility:        t.utility / n,
			AvgSuccessUtility: successUtility,
			AvgTime:           t.elapsed / time.Duration(t.runs),
			AvgStatesExplored: t.states / n,
			BestUtilityWins:   t.wins,
		}
	}
	return stats
}
