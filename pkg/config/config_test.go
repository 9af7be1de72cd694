package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "distillai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "distillai.db", cfg.Database.DSN)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.ReplicaEnabled())
	assert.NotEmpty(t, cfg.SystemCategories)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
database:
  driver: postgres
  dsn: postgres://localhost/distillai
  change_tracking: true
server:
  port: "9090"
surrealdb:
  url: ws://localhost:8000/rpc
sync:
  interval: 5s
log:
  format: console
system_categories:
  - name: Lecture
    color: "#112233"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.ChangeTracking)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.ReplicaEnabled())
	assert.Equal(t, "distillai", cfg.SurrealDB.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, "console", cfg.Log.Format)
	require.Len(t, cfg.SystemCategories, 1)
	assert.Equal(t, "#112233", cfg.SystemCategories[0].Color)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: \"9090\"\n")
	t.Setenv("DISTILLAI_PORT", "7070")
	t.Setenv("DISTILLAI_READ_ONLY", "true")
	t.Setenv("DISTILLAI_SYNC_INTERVAL", "1m")
	t.Setenv("DISTILLAI_SURREALDB_URL", "ws://replica:8000/rpc")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.True(t, cfg.Server.ReadOnly)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "ws://replica:8000/rpc", cfg.SurrealDB.URL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown key", file: "databse:\n  driver: sqlite\n", wantErr: "failed to parse YAML"},
		{name: "bad driver", file: "database:\n  driver: mysql\n", wantErr: "database.driver"},
		{name: "bad port", file: "server:\n  port: http\n", wantErr: "server.port"},
		{name: "bad format", file: "log:\n  format: xml\n", wantErr: "log.format"},
		{name: "unnamed category", file: "system_categories:\n  - icon: x\n", wantErr: "system_categories[0]"},
		{name: "bad bool env", env: map[string]string{"DISTILLAI_CHANGE_TRACKING": "maybe"}, wantErr: "DISTILLAI_CHANGE_TRACKING"},
		{name: "bad duration env", env: map[string]string{"DISTILLAI_SYNC_INTERVAL": "soon"}, wantErr: "DISTILLAI_SYNC_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
