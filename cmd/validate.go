package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-service-composer/internal/config"
	"github.com/deploymenttheory/go-service-composer/internal/registry"
	"github.com/spf13/cobra"
)

type documentReport struct {
	Path     string `json:"path" yaml:"path"`
	Kind     string `json:"kind" yaml:"kind"`
	Records  int    `json:"records" yaml:"records"`
	Checksum string `json:"checksum" yaml:"checksum"`
}

// validateCmd checks pool and request documents without composing
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate pool and request documents",
	Long: `Validate loads the documents named by --services and --requests (or the
configuration), reports every invalid record and prints the BLAKE2b checksum
of each document.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initTooling(cmd, true)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var reports []documentReport

		if path := config.Instance.Pool.ServicesFile; path != "" {
			pool, err := registry.LoadPool(path)
			if err != nil {
				return err
			}
			report, err := newDocumentReport(path, "services", pool.Len())
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		if path := config.Instance.Pool.RequestsFile; path != "" {
			requests, err := registry.LoadRequests(path)
			if err != nil {
				return err
			}
			report, err := newDocumentReport(path, "requests", len(requests))
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		if len(reports) == 0 {
			return fmt.Errorf("nothing to validate, pass --services or --requests")
		}

		out := cmd.OutOrStdout()
		structured, err := writeStructured(out, outputFormat, reports)
		if err != nil || structured {
			return err
		}
		for _, r := range reports {
			fmt.Fprintf(out, "%s: %d %s, valid\n  blake2b-512 %s\n", r.Path, r.Records, r.Kind, r.Checksum)
		}
		return nil
	},
}

func newDocumentReport(path, kind string, records int) (documentReport, error) {
	sum, err := registry.DocumentChecksum(path)
	if err != nil {
		return documentReport{}, err
	}
	return documentReport{Path: path, Kind: kind, Records: records, Checksum: sum}, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
