package testenv

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

const (
	// DefaultWSURL is the default WebSocket URL for SurrealDB.
	DefaultWSURL = "ws://localhost:8000/rpc"

	// EnvWSURL names the environment variable holding the SurrealDB URL.
	// Replica tests are skipped unless it is set.
	EnvWSURL = "SURREALDB_URL"
)

// SurrealTarget is where a replica test writes.
type SurrealTarget struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Surreal returns a fresh database on the SurrealDB instance named by
// SURREALDB_URL, or skips the test when the variable is unset. An http URL
// is rewritten to its WebSocket form.
func Surreal(t testing.TB) SurrealTarget {
	t.Helper()
	u := os.Getenv(EnvWSURL)
	if u == "" {
		t.Skipf("%s not set, skipping SurrealDB test (e.g. %s)", EnvWSURL, DefaultWSURL)
	}
	u = strings.Replace(u, "http", "ws", 1)
	if !strings.HasSuffix(u, "/rpc") {
		u = strings.TrimSuffix(u, "/") + "/rpc"
	}
	return SurrealTarget{
		URL:       u,
		Namespace: "distillai_test",
		Database:  "t_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Username:  "root",
		Password:  "root",
	}
}
