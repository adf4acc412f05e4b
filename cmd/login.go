package cmd

import (
	"fmt"

	"github.com/recallhq/recall/internal/config"
	"github.com/spf13/cobra"
)

var (
	loginToken             string
	loginKeyEndpoint       string
	loginSummarizeEndpoint string
	loginAuthor            string
	loginTool              string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the credential and endpoints in the config file",
	Long: `Write the given credential and service endpoints into the config file.

Only flags that are set are written; existing values are kept. Environment
variables (RECALL_TOKEN and friends) still override the file at runtime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			path, err = config.DefaultPath()
			if err != nil {
				return err
			}
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		if loginToken != "" {
			cfg.Token = loginToken
		}
		if loginKeyEndpoint != "" {
			cfg.KeyEndpoint = loginKeyEndpoint
		}
		if loginSummarizeEndpoint != "" {
			cfg.SummarizeEndpoint = loginSummarizeEndpoint
		}
		if loginAuthor != "" {
			cfg.Author = loginAuthor
		}
		if loginTool != "" {
			cfg.Tool = loginTool
		}

		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Configuration written:"), pathStyle.Render(path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Bearer credential for the key service")
	loginCmd.Flags().StringVar(&loginKeyEndpoint, "key-endpoint", "", "Key-resolution service URL")
	loginCmd.Flags().StringVar(&loginSummarizeEndpoint, "summarize-endpoint", "", "Transcript summarization service URL")
	loginCmd.Flags().StringVar(&loginAuthor, "author", "", "Author recorded on saved sessions")
	loginCmd.Flags().StringVar(&loginTool, "tool", "", "Default tool name for imported transcripts")
}
