package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/pkg/tooling"
	"gopkg.in/yaml.v3"
)

// writeStructured encodes v as json or yaml. It reports false for the text
// format so callers can render their own view.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	case "", "text":
		return false, nil
	default:
		return true, fmt.Errorf("unsupported output format %q", format)
	}
}

func writeResult(w io.Writer, r *tooling.Result, showTrace bool) {
	status := "FAILED"
	if r.Success {
		status = "OK"
	}
	fmt.Fprintf(w, "[%s] %s (%s)\n", status, r.RequestID, r.Strategy)
	fmt.Fprintln(w, r.Explanation)
	if r.Success {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  response_time\tavailability\tthroughput\treliability\tlatency")
		fmt.Fprintf(tw, "  %.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			r.QoS.ResponseTime, r.QoS.Availability, r.QoS.Throughput, r.QoS.Reliability, r.QoS.Latency)
		tw.Flush()
	}
	if r.Cached {
		fmt.Fprintln(w, "(cached)")
	}
	if showTrace {
		for _, ev := range r.Trace {
			fmt.Fprintf(w, "  %4d %-14s %s\n", ev.Step, ev.Action, ev.Description)
		}
	}
}

func writeComparison(w io.Writer, c *tooling.Comparison) {
	fmt.Fprintf(w, "Request %s\n", c.RequestID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  strategy\tsuccess\tutility\tstates\ttime\tworkflow")
	for _, kind := range search.Kinds {
		r, ok := c.Results[kind]
		if !ok {
			continue
		}
		workflow := strings.Join(r.Workflow, " -> ")
		if !r.Success {
			workflow = string(r.Failure)
		}
		fmt.Fprintf(tw, "  %s\t%t\t%.3f\t%d\t%s\t%s\n",
			kind, r.Success, r.Utility, r.StatesExplored, r.ComputationTime, workflow)
	}
	tw.Flush()

	if len(c.QoS) > 0 {
		fmt.Fprintln(w, "  optimal vs greedy:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, q := range c.QoS {
			fmt.Fprintf(tw, "    %s\t%.3f\t%.3f\t%s\n", q.Dimension, q.A, q.B, q.Winner)
		}
		tw.Flush()
	}
}

func writeStatistics(w io.Writer, stats tooling.Statistics) {
	kinds := make([]string, 0, len(stats))
	for k := range stats {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "strategy\truns\tsuccess %\tavg utility\tavg utility (found)\tavg time\tavg states\tbest utility wins")
	for _, k := range kinds {
		s := stats[search.Kind(k)]
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.3f\t%.3f\t%s\t%.1f\t%d\n",
			k, s.Runs, s.SuccessRate, s.AvgUtility, s.AvgSuccessUtility, s.AvgTime, s.AvgStatesExplored, s.BestUtilityWins)
	}
	tw.Flush()
}
