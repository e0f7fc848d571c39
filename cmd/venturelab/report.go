package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"venturelab/internal/codec"
	"venturelab/internal/domain"
)

var (
	reportFormat string
	reportInput  string
)

var reportCmd = &cobra.Command{
	Use:   "report [type]",
	Short: "Generate a report for an experiment type from the database",
	Long: `Generate aggregates every retained result of one experiment type stored in
the configured database. With --input, a previously saved JSON or YAML report
is re-rendered instead.

Formats: ` + strings.Join(codec.Formats(), ", "),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := codec.ExporterFor(reportFormat)
		if err != nil {
			return err
		}

		var report *domain.Report
		switch {
		case reportInput != "":
			report, err = readReport(reportInput)
		case len(args) == 1:
			report, err = generateReport(cmd, args[0])
		default:
			return fmt.Errorf("an experiment type or --input is required")
		}
		if err != nil {
			return err
		}

		return exporter.Export(report, cmd.OutOrStdout())
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "output format")
	reportCmd.Flags().StringVarP(&reportInput, "input", "i", "", "saved report to re-render (.json, .yaml)")
}

func generateReport(cmd *cobra.Command, rawType string) (*domain.Report, error) {
	typ, err := domain.ParseExperimentType(rawType)
	if err != nil {
		return nil, err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.engine.Report(cmd.Context(), typ)
}

func readReport(path string) (*domain.Report, error) {
	format := "json"
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		format = "yaml"
	}
	importer, err := codec.ImporterFor(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return importer.Parse(f)
}
