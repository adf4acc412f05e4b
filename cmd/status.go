package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/recallhq/recall/internal/keys"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check configuration, key access, and store health",
	Long: `Check the health of the recall setup by verifying:
  • Configuration file and identity
  • Key service access (with the exact denial reason when refused)
  • Memory directory contents and encryption state
  • Import tracker

This command is useful for debugging access and storage issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("🔍 Recall Status"))
		fmt.Println()

		// Step 1: configuration
		fmt.Println(infoStyle.Render("Step 1: Reading configuration..."))
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Failed to read configuration:"), err)
			return err
		}
		fmt.Println(successStyle.Render("✅ Configuration loaded"))
		if cfg.Author == "" {
			fmt.Println(warningStyle.Render("⚠️  No author configured; sessions will use $USER"))
		}
		if verbose {
			fmt.Printf("   Author: %s\n", cfg.Author)
			fmt.Printf("   Tool: %s\n", cfg.Tool)
			fmt.Printf("   Key endpoint: %s\n", cfg.KeyEndpoint)
			fmt.Printf("   Summarize endpoint: %s\n", cfg.SummarizeEndpoint)
		}
		fmt.Println()

		// Step 2: key access
		fmt.Println(infoStyle.Render("Step 2: Resolving team key..."))
		key, keyErr := resolveKey(cmd.Context(), cfg)
		switch {
		case keyErr == nil && key == nil:
			fmt.Println(warningStyle.Render("⚠️  Plaintext mode (no credential configured)"))
			fmt.Println("   Set token in the config or RECALL_TOKEN to enable encryption.")
		case keyErr == nil:
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ Key resolved: team %s, version %d", key.TeamID, key.Version)))
		default:
			var denied *keys.AccessDeniedError
			if errors.As(keyErr, &denied) {
				fmt.Println(errorStyle.Render(fmt.Sprintf("❌ Access denied (%s)", denied.Reason)))
				fmt.Printf("   %s\n", denied.Message)
				if denied.Retryable() {
					fmt.Println("   This looks temporary; retry in a moment.")
				}
			} else {
				fmt.Println(errorStyle.Render("❌ Key resolution failed:"), keyErr)
			}
		}
		fmt.Println()

		// Step 3: memory directory
		fmt.Println(infoStyle.Render("Step 3: Checking memory directory..."))
		if _, statErr := os.Stat(memoryDir); statErr != nil {
			fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  Memory directory %s does not exist yet", memoryDir)))
			fmt.Println("   It is created on the first `recall import` or `recall save`.")
			return nil
		}

		store := memory.NewStore(memoryDir, key)
		sessions, encrypted := 0, 0
		scanErr := store.EachSession(func(entry memory.SessionEntry) error {
			sessions++
			raw, readErr := os.ReadFile(filepath.Join(memoryDir, entry.Path))
			if readErr == nil && memory.IsEncrypted(string(raw)) {
				encrypted++
			}
			return nil
		})
		if scanErr != nil {
			fmt.Println(errorStyle.Render("❌ Failed to scan sessions:"), scanErr)
			return scanErr
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ %d session(s), %d encrypted", sessions, encrypted)))

		for _, artifact := range []string{memory.ArtifactContext, memory.ArtifactHistory} {
			if _, readErr := store.ReadArtifact(artifact); readErr != nil {
				fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  No %s artifact", artifact)))
			} else if verbose {
				fmt.Printf("   Artifact %s: present\n", artifact)
			}
		}

		track, trackErr := tracker.Load(memoryDir)
		if trackErr != nil {
			fmt.Println(warningStyle.Render("⚠️  Import tracker unreadable:"), trackErr)
		} else {
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ Import tracker: %d source(s)", len(track.Sessions))))
		}
		fmt.Println()

		// Summary
		fmt.Println(sectionStyle.Render("📊 Summary"))
		fmt.Println()
		if keyErr != nil {
			fmt.Println(errorStyle.Render("❌ Key access is broken; encrypted content is unreadable"))
			return keyErr
		}
		if sessions == 0 {
			fmt.Println(warningStyle.Render("⚠️  Store is healthy but empty"))
			return nil
		}
		fmt.Println(successStyle.Render("✅ Everything looks good"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
