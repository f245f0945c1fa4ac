package cmd

import (
	"fmt"

	"github.com/blue-onyx-go/blueonyx/internal/models"
	"github.com/spf13/cobra"
)

// downloadCmd fetches one catalog model into a destination directory (spec
// §6's --download-*, SPEC_FULL §12).
var downloadCmd = &cobra.Command{
	Use:   "download <model-name>",
	Short: "Download a known model by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, ok := models.Find(args[0])
		if !ok {
			return fmt.Errorf("download: unknown model %q (see list-models)", args[0])
		}

		dest, _ := cmd.Flags().GetString("dest")
		path, err := models.Download(cmd.Context(), entry, dest)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s to %s\n", entry.Name, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().String("dest", "./models", "destination directory")
}
