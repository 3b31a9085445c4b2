package cmd

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-service-composer/internal/logger"
	"github.com/deploymenttheory/go-service-composer/pkg/tooling"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	servicesFile string
	requestsFile string
	metricsFile  string
	outputFormat string
)

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "service-composer",
	Short: "Find chains of services that turn provided parameters into a result",
	Long: `service-composer searches a pool of services, each consuming and producing
named parameters, for a chain that turns a request's provided parameters into
its resultant parameter.

Three strategies are available: an optimal best-first search that maximizes
the bottleneck utility of the chain, a heuristic variant guided by goal
proximity, and a greedy search that never backtracks.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initTooling(cmd, false)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return tooling.Shutdown()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// initTooling initializes the tooling API from the persistent flags.
func initTooling(cmd *cobra.Command, skipDocuments bool) error {
	// CLI flags can override config settings
	opts := tooling.DefaultOptions()
	opts.ConfigFile = cfgFile
	opts.ServicesFile = servicesFile
	opts.RequestsFile = requestsFile
	opts.MetricsFile = metricsFile
	opts.LogFormat = ""
	opts.SkipDocuments = skipDocuments

	if cmd.Flags().Changed("debug") {
		opts.Debug, _ = cmd.Flags().GetBool("debug")
	}
	if cmd.Flags().Changed("log-format") {
		opts.LogFormat, _ = cmd.Flags().GetString("log-format")
	}

	return tooling.Initialize(opts)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("SERVICE_COMPOSER_CONFIG"), "config file (default is $SERVICE_COMPOSER_CONFIG or search in standard locations)")
	rootCmd.PersistentFlags().StringVarP(&servicesFile, "services", "s", "", "service pool document")
	rootCmd.PersistentFlags().StringVarP(&requestsFile, "requests", "r", "", "request document")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "human", "Log format: json or human")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "service-composer v%s\n", tooling.GetVersion())
	},
}
