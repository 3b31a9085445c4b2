package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/service"
	"github.com/deploymenttheory/go-service-composer/pkg/tooling"
	"github.com/spf13/cobra"
)

var (
	composeRequest   string
	composeStrategy  string
	composeProvided  []string
	composeResultant string
	composeTrace     bool
	composeGraph     bool
)

// composeCmd runs one request with one strategy
var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose a workflow for a request",
	Long: `Compose runs a single request against the loaded service pool.

The request is either looked up by id in the request document (--request) or
built from --provided and --resultant.`,
	Example: `  service-composer compose -s pool.yaml -r requests.yaml --request forecast
  service-composer compose -s pool.yaml --provided address --resultant forecast --strategy greedy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := composeTarget()
		if err != nil {
			return err
		}

		result, err := tooling.Compose(cmd.Context(), req, composeStrategy)
		if err != nil {
			return err
		}
		if !composeTrace {
			result.Trace = nil
		}
		if !composeGraph {
			result.Graph = nil
		}

		structured, err := writeStructured(cmd.OutOrStdout(), outputFormat, result)
		if err != nil {
			return err
		}
		if !structured {
			writeResult(cmd.OutOrStdout(), result, composeTrace)
		}
		return nil
	},
}

func composeTarget() (tooling.Request, error) {
	if composeRequest != "" {
		return tooling.FindRequest(composeRequest)
	}
	if composeResultant == "" {
		return tooling.Request{}, fmt.Errorf("either --request or --resultant is required")
	}
	return service.NewRequest("adhoc", composeProvided, composeResultant, qos.Vector{}), nil
}

func init() {
	composeCmd.Flags().StringVar(&composeRequest, "request", "", "id of a request in the request document")
	composeCmd.Flags().StringVar(&composeStrategy, "strategy", "optimal", "Search strategy: optimal, heuristic or greedy")
	composeCmd.Flags().StringSliceVar(&composeProvided, "provided", nil, "provided parameters of an ad hoc request")
	composeCmd.Flags().StringVar(&composeResultant, "resultant", "", "resultant parameter of an ad hoc request")
	composeCmd.Flags().BoolVar(&composeTrace, "trace", false, "include the search trace")
	composeCmd.Flags().BoolVar(&composeGraph, "graph", false, "include the candidate graph")

	rootCmd.AddCommand(composeCmd)
}
