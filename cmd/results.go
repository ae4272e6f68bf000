package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voltmesh/prodsim/config"
	"github.com/voltmesh/prodsim/pkg/export"
)

var (
	resultsStage     string
	resultsVariables []string
	resultsFormat    string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Export realized results from a finished run",
	RunE:  exportResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsStage, "stage", "", "stage to read (required)")
	resultsCmd.Flags().StringSliceVar(&resultsVariables, "variables", nil, "variable names to include (default all)")
	resultsCmd.Flags().StringVar(&resultsFormat, "format", "csv", "output format: csv or json")
	_ = resultsCmd.MarkFlagRequired("stage")
	rootCmd.AddCommand(resultsCmd)
}

func exportResults(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Backend == "memory" {
		return fmt.Errorf("memory storage holds no results after the run; use jsonl or sqlite")
	}
	st, err := cfg.Storage.Open()
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}
	defer st.Close()

	series, err := st.ReadRealizedVariables(context.Background(), resultsStage, resultsVariables)
	if err != nil {
		return err
	}
	switch resultsFormat {
	case "csv":
		return export.WriteCSV(os.Stdout, series)
	case "json":
		return export.WriteJSON(os.Stdout, series)
	default:
		return fmt.Errorf("unknown format %q", resultsFormat)
	}
}
