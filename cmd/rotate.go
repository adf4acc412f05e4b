package cmd

import (
	"fmt"

	"github.com/recallhq/recall/internal/keys"
	"github.com/recallhq/recall/internal/memory"
	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Fetch the current team key and check the store against it",
	Long: `Fetch a fresh team key from the key service and verify that every stored
session still decrypts with it.

Rotation never re-encrypts anything by itself. When sessions are found that
were written under an older key, the command reports them and points at
` + "`recall reencrypt`" + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Token == "" {
			return fmt.Errorf("no credential configured; rotation only applies to encrypted stores")
		}

		provider := keys.NewProvider(cfg.KeyEndpoint, keys.Credential{Token: cfg.Token}, nil)
		provider.InvalidateCache()
		key, err := provider.Resolve(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render(fmt.Sprintf("Team %s is on key version %d", key.TeamID, key.Version)))

		store := memory.NewStore(memoryDir, key)
		stale := 0
		err = store.EachSession(func(entry memory.SessionEntry) error {
			if _, readErr := store.ReadSession(entry.Path); readErr != nil {
				stale++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan sessions: %w", err)
		}

		if stale > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render(fmt.Sprintf("⚠️  %d session(s) do not decrypt with version %d", stale, key.Version)))
			fmt.Fprintln(cmd.OutOrStdout(), "   Run `recall reencrypt --old-key <base64>` with the previous key material.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ All sessions decrypt with the current key"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}
