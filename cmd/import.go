package cmd

import (
	"fmt"

	"github.com/recallhq/recall/internal/importer"
	"github.com/spf13/cobra"
)

var importCursorDB string

var importCmd = &cobra.Command{
	Use:   "import [transcript...]",
	Short: "Import assistant transcripts into team memory",
	Long: `Import JSONL transcripts (Claude Code, Codex, and similar vendor shapes)
or a Cursor globalStorage database into the team memory directory.

Already-imported sources are skipped unless their modification time moved
forward. Tagged sessions keep their structure; untagged transcripts are
summarized. Both derived artifacts are regenerated after a successful import.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && importCursorDB == "" {
			return fmt.Errorf("nothing to import: pass transcript files or --cursor <state.vscdb>")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		im := newImporter(store, cfg)

		total := &importer.Result{}
		if len(args) > 0 {
			result, err := im.ImportFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			merge(total, result)
		}
		if importCursorDB != "" {
			result, err := im.ImportCursor(cmd.Context(), importCursorDB)
			if err != nil {
				return err
			}
			merge(total, result)
		}

		if len(total.SessionPaths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render(fmt.Sprintf("Nothing new to import (%d already imported)", total.Skipped)))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✅ Imported %d session(s), %d message(s), skipped %d", len(total.SessionPaths), total.MessageCount, total.Skipped)))
		for _, path := range total.SessionPaths {
			fmt.Fprintln(cmd.OutOrStdout(), "  "+pathStyle.Render(path))
		}
		return nil
	},
}

func merge(total, result *importer.Result) {
	total.MessageCount += result.MessageCount
	total.Skipped += result.Skipped
	total.SessionPaths = append(total.SessionPaths, result.SessionPaths...)
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importCursorDB, "cursor", "", "Import from a Cursor globalStorage database (state.vscdb)")
}
