package cmd

import (
	"encoding/base64"
	"fmt"

	"github.com/recallhq/recall/internal/envelope"
	"github.com/spf13/cobra"
)

var reencryptOldKey string

var reencryptCmd = &cobra.Command{
	Use:   "reencrypt",
	Short: "Re-encrypt sessions written under an older team key",
	Long: `Re-encrypt every session that still decrypts with the given old key so the
whole store is sealed under the current team key.

This is the explicit migration step after a key rotation; nothing in recall
re-encrypts implicitly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		oldKey, err := base64.StdEncoding.DecodeString(reencryptOldKey)
		if err != nil {
			return fmt.Errorf("--old-key is not valid base64: %w", err)
		}
		if len(oldKey) != envelope.KeySize {
			return fmt.Errorf("--old-key must decode to %d bytes, got %d", envelope.KeySize, len(oldKey))
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if !store.Encrypted() {
			return fmt.Errorf("no team key available; cannot re-encrypt a plaintext store")
		}

		count, err := store.ReencryptSessions(oldKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✅ Re-encrypted %d session(s)", count)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reencryptCmd)
	reencryptCmd.Flags().StringVar(&reencryptOldKey, "old-key", "", "Previous key material, base64 encoded (required)")
	_ = reencryptCmd.MarkFlagRequired("old-key")
}
