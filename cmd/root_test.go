package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/recallhq/recall/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"RECALL_TOKEN", "RECALL_KEY_ENDPOINT", "RECALL_SUMMARIZE_ENDPOINT", "RECALL_AUTHOR", "RECALL_TOOL"} {
		t.Setenv(name, "")
	}
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImportLoadListWorkflow(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := dir + "/config.yaml"
	memDir := dir + "/memory"
	transcript := testutil.WriteTranscriptFixture(t, dir, "session.jsonl")

	if _, err := execute(t, "--config", cfgPath, "login", "--author", "alice@example.com", "--tool", "claude-code"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out, err := execute(t, "--config", cfgPath, "--dir", memDir, "import", transcript)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 1 session(s)") {
		t.Errorf("import output = %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "--dir", memDir, "load", "context")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !strings.Contains(out, "# Team Context") {
		t.Errorf("load output = %q", out)
	}

	if _, err := execute(t, "--config", cfgPath, "--dir", memDir, "list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	// Second import of the same file is a no-op.
	out, err = execute(t, "--config", cfgPath, "--dir", memDir, "import", transcript)
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if !strings.Contains(out, "Nothing new to import") {
		t.Errorf("re-import output = %q", out)
	}
}

func TestSaveCommandFromStdin(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	memDir := dir + "/memory"

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetIn(strings.NewReader("# Cache decision\n\n## Summary\n\nPicked the existing store.\n\n[DECISION] Reuse store\n**What:** no new cache layer\n"))
	rootCmd.SetArgs([]string{"--config", dir + "/config.yaml", "--dir", memDir, "save"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Saved session:") {
		t.Errorf("save output = %q", stdout.String())
	}

	out, err := execute(t, "--config", dir+"/config.yaml", "--dir", memDir, "load", "history")
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	if !strings.Contains(out, "Reuse store") {
		t.Errorf("history output = %q", out)
	}
}

func TestLoadWithoutArtifacts(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	_, err := execute(t, "--config", dir+"/config.yaml", "--dir", dir+"/memory", "load")
	if err == nil || !strings.Contains(err.Error(), "no context artifact yet") {
		t.Errorf("load on empty store error = %v", err)
	}
}

func TestImportRequiresSource(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	_, err := execute(t, "--config", dir+"/config.yaml", "--dir", dir, "import")
	if err == nil || !strings.Contains(err.Error(), "nothing to import") {
		t.Errorf("import without sources error = %v", err)
	}
}
