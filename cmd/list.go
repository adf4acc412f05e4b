package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/recallhq/recall/internal/extract"
	"github.com/recallhq/recall/internal/memory"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List all sessions in the team memory directory, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		files, err := store.ListSessions()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		displaySessions(files)
		return nil
	},
}

func displaySessions(files []memory.SessionFile) {
	if len(files) == 0 {
		fmt.Println(headerStyle.Render("📋 No sessions found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(files)))
	fmt.Println(header)
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("Date")+"\t"+titleStyle.Render("Author")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Status")+"\t"+titleStyle.Render("Path")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 110))

	for _, f := range files {
		title := "Untitled"
		author := ""
		status := ""
		if session := extract.Extract(f.Content); session != nil {
			if session.Title != "" {
				title = session.Title
			}
			author = session.Author
			status = string(session.Status)
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			dateStyle.Render(formatRelativeDate(f.ModTime)),
			authorStyle.Render(author),
			title,
			countStyle.Render(status),
			pathStyle.Render(f.Path),
		)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(pathStyle.Render("💡 Tip: Use `recall show ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(files[0].Path) +
		pathStyle.Render("` to read a session"))
}

func formatRelativeDate(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
