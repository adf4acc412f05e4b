package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/recallhq/recall/internal/importer"
	"github.com/recallhq/recall/internal/memory"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load [context|history]",
	Short: "Print a derived memory artifact",
	Long: `Print the current-context snapshot or the full history timeline.

The artifact is decrypted and written to stdout so it can be piped straight
into an assistant prompt. An approximate token count goes to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := memory.ArtifactContext
		if len(args) == 1 {
			name = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		content, err := store.ReadArtifact(name)
		if err != nil {
			var notFound *memory.NotFoundError
			if errors.As(err, &notFound) {
				return fmt.Errorf("no %s artifact yet; run `recall import` or `recall save` first", name)
			}
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), content)
		fmt.Fprintln(os.Stderr, dateStyle.Render(fmt.Sprintf("≈ %d tokens", importer.TokenEstimate(content))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
