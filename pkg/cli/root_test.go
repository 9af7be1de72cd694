package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "distillai", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "sync", "import", "tree"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	require.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	require.NotNil(t, serve.Flags().Lookup("port"))
	require.NotNil(t, serve.Flags().Lookup("read-only"))

	sync, _, err := cmd.Find([]string{"sync"})
	require.NoError(t, err)
	require.NotNil(t, sync.Flags().Lookup("watch"))
}

// setupConfig writes a config pointing at a fresh SQLite file.
func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "distillai.yaml")
	content := fmt.Sprintf("database:\n  dsn: %s\nlog:\n  level: error\n", filepath.Join(dir, "distillai.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateImportTree(t *testing.T) {
	cfg := setupConfig(t)
	owner := models.NewUserID().String()

	out, err := execute(t, "--config", cfg, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrated sqlite database\n", out)

	// seeding twice is a no-op
	_, err = execute(t, "--config", cfg, "migrate")
	require.NoError(t, err)

	md := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(md, []byte("# Notes\n\nfirst\n\n- a\n- b\n"), 0o600))

	out, err = execute(t, "--config", cfg, "import", "--owner", owner, md)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^imported "Notes" as [0-9a-f-]{36} with 2 blocks\n$`), out)

	out, err = execute(t, "--config", cfg, "tree", "--owner", owner)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n  - first\n  - a ...\n", out)

	out, err = execute(t, "--config", cfg, "tree", "--owner", models.NewUserID().String())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCommandErrors(t *testing.T) {
	cfg := setupConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing owner", []string{"--config", cfg, "tree"}, `required flag(s) "owner" not set`},
		{"bad owner", []string{"--config", cfg, "tree", "--owner", "bob"}, "invalid user ID"},
		{"bad parent", []string{"--config", cfg, "import", "--owner", models.NewUserID().String(), "--parent", "x", "a.md"}, "invalid node ID"},
		{"missing file", []string{"--config", cfg, "import", "--owner", models.NewUserID().String(), "missing.md"}, "failed to read"},
		{"no replica", []string{"--config", cfg, "sync"}, "surrealdb.url is not configured"},
		{"bad log level", []string{"--config", cfg, "--log-level", "loud", "migrate"}, "invalid log level"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "migrate"}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
