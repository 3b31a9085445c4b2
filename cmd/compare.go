package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-service-composer/internal/logger"
	"github.com/deploymenttheory/go-service-composer/pkg/tooling"
	"github.com/spf13/cobra"
)

var compareRequest string

type comparisonReport struct {
	Comparisons []*tooling.Comparison `json:"comparisons" yaml:"comparisons"`
	Statistics  tooling.Statistics    `json:"statistics" yaml:"statistics"`
}

// compareCmd runs every strategy on the loaded requests
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run every strategy and compare the results",
	Long: `Compare runs the optimal, heuristic and greedy strategies on each loaded
request, or only on --request, and reports per-strategy statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		requests := tooling.Requests()
		if compareRequest != "" {
			req, err := tooling.FindRequest(compareRequest)
			if err != nil {
				return err
			}
			requests = []tooling.Request{req}
		}
		if len(requests) == 0 {
			return fmt.Errorf("no requests loaded, pass --requests or set pool.requests_file")
		}

		report := comparisonReport{}
		for _, req := range requests {
			c, err := tooling.Compare(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, r := range c.Results {
				r.Trace = nil
				r.Graph = nil
			}
			report.Comparisons = append(report.Comparisons, c)
		}
		report.Statistics = tooling.Summarize(report.Comparisons)

		logger.LogInfo("Comparison finished", map[string]interface{}{
			"requests": len(requests),
		})

		out := cmd.OutOrStdout()
		structured, err := writeStructured(out, outputFormat, report)
		if err != nil || structured {
			return err
		}
		for _, c := range report.Comparisons {
			writeComparison(out, c)
			fmt.Fprintln(out)
		}
		writeStatistics(out, report.Statistics)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareRequest, "request", "", "compare only this request")

	rootCmd.AddCommand(compareCmd)
}
