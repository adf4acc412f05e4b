package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/importer"
	"github.com/recallhq/recall/internal/keys"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/summarize"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	memoryDir  string
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Encrypted, file-based team memory for AI coding sessions",
	Long: `Recall turns raw AI coding transcripts into a shared, encrypted team memory.

Sessions are stored as individual markdown files and distilled into two
derived artifacts: a current-context snapshot and a full history timeline.
With a team key every file on disk is sealed in an authenticated envelope;
without one the store works in plaintext.

Quick Start:
  recall import ~/transcripts/*.jsonl    # Import assistant transcripts
  recall load context                    # Print the current team context
  recall list                            # List stored sessions

For detailed usage, see: https://github.com/recallhq/recall`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var denied *keys.AccessDeniedError
		if errors.As(err, &denied) {
			fmt.Fprintf(os.Stderr, "Access denied (%s): %s\n", denied.Reason, denied.Message)
			if denied.Retryable() {
				fmt.Fprintln(os.Stderr, "This looks temporary; retry in a moment.")
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&memoryDir, "dir", ".recall", "Team memory directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.recall/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// resolveKey fetches the team key when a credential is configured. An empty
// token selects plaintext mode instead of failing, so free-tier and local
// use keeps working without a key service.
func resolveKey(ctx context.Context, cfg *config.Config) (*keys.TeamKey, error) {
	if cfg.Token == "" {
		logging.Info("no credential configured, using plaintext storage")
		return nil, nil
	}
	if cfg.KeyEndpoint == "" {
		return nil, fmt.Errorf("token is set but key_endpoint is not; set RECALL_KEY_ENDPOINT or key_endpoint in the config")
	}
	provider := keys.NewProvider(cfg.KeyEndpoint, keys.Credential{Token: cfg.Token}, nil)
	return provider.Resolve(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (*memory.Store, error) {
	key, err := resolveKey(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return memory.NewStore(memoryDir, key), nil
}

func newImporter(store *memory.Store, cfg *config.Config) *importer.Importer {
	author := cfg.Author
	if author == "" {
		author = os.Getenv("USER")
	}
	if author == "" {
		author = "unknown"
	}
	tool := cfg.Tool
	if tool == "" {
		tool = "unknown"
	}
	return &importer.Importer{
		Store:      store,
		Summarizer: summarize.NewClient(cfg.SummarizeEndpoint, cfg.Token, nil),
		Author:     author,
		Tool:       tool,
	}
}
