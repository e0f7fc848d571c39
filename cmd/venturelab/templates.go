package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"venturelab/internal/catalog"
	"venturelab/internal/domain"
)

var templateStage string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect and manage experiment templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the templates in the active catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}

		templates := cat.List()
		if templateStage != "" {
			stage := domain.ValidationStage(templateStage)
			if !stage.Valid() {
				return fmt.Errorf("unknown validation stage %q", templateStage)
			}
			templates = cat.ForStage(stage)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSTAGE\tDAYS\tRISK\tCRITERIA")
		for _, t := range templates {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\n", t.ID, t.Type, t.Stage, t.DurationDays, t.RiskLevel, len(t.SuccessCriteria))
		}
		return tw.Flush()
	},
}

var templatesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the active catalog as a YAML template pack",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return cat.ExportYAML(cmd.OutOrStdout())
		}

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := cat.ExportYAML(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a YAML template pack without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		templates, err := catalog.ParseYAML(f)
		if err != nil {
			return err
		}
		if _, err := catalog.New(templates...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d templates OK\n", args[0], len(templates))
		return nil
	},
}

func init() {
	templatesListCmd.Flags().StringVar(&templateStage, "stage", "", "only list templates of this validation stage")
	templatesCmd.AddCommand(templatesListCmd, templatesExportCmd, templatesValidateCmd)
}
