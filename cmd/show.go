package cmd

import (
	"fmt"

	"github.com/recallhq/recall/internal/extract"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <session-path>",
	Short: "Show a stored session",
	Long: `Show one session from the team memory directory.

The path argument is relative to the memory directory, as printed by
` + "`recall list`" + ` (for example sessions/2026-08/alice/14-0926.md.enc).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		content, err := store.ReadSession(args[0])
		if err != nil {
			return err
		}

		switch showFormat {
		case "md", "markdown":
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		case "yaml":
			session := extract.Extract(content)
			if session == nil {
				return fmt.Errorf("session %s has no structured content", args[0])
			}
			encoded, err := yaml.Marshal(session)
			if err != nil {
				return fmt.Errorf("failed to encode session: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(encoded))
			return nil
		default:
			return fmt.Errorf("unknown format %q (want md or yaml)", showFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showFormat, "format", "md", "Output format: md, yaml")
}
