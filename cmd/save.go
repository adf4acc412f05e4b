package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	saveAuthor string
	saveTool   string
)

var saveCmd = &cobra.Command{
	Use:   "save [file]",
	Short: "Save a structured session written by hand or by an assistant",
	Long: `Save one markdown session into the team memory directory.

The input must carry at least a summary or one tagged section ([DECISION],
[FAILURE], [LESSON], [PROMPT_PATTERN]). Reads stdin when no file is given.
Both derived artifacts are regenerated after the save.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var markdown []byte
		var err error
		if len(args) == 1 && args[0] != "-" {
			markdown, err = os.ReadFile(args[0])
		} else {
			markdown, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if saveAuthor != "" {
			cfg.Author = saveAuthor
		}
		if saveTool != "" {
			cfg.Tool = saveTool
		}

		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		path, err := newImporter(store, cfg).SaveMarkdown(string(markdown))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Saved session:"), pathStyle.Render(path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVar(&saveAuthor, "author", "", "Override the configured author")
	saveCmd.Flags().StringVar(&saveTool, "tool", "", "Override the configured tool name")
}
