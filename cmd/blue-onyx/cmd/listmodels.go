package cmd

import (
	"fmt"

	"github.com/blue-onyx-go/blueonyx/internal/models"
	"github.com/spf13/cobra"
)

// listModelsCmd prints the built-in model catalog (spec §6's --list-models,
// SPEC_FULL §12's supplemented model-management surface).
var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List known downloadable detection models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, entry := range models.Catalog {
			fmt.Fprintf(out, "%-14s %-12s %s\n", entry.Name, entry.Family, entry.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
}
