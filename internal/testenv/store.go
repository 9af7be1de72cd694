// Package testenv provides fixtures shared by the package tests: throwaway
// SQLite stores and, when SURREALDB_URL is set, connections to a live
// SurrealDB replica.
package testenv

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/paduck86/distillai/pkg/store/sqlstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// StoreOption adjusts the options NewStore opens the database with.
type StoreOption func(*sqlstore.Options)

// WithChangeTracking enables the change feed.
func WithChangeTracking() StoreOption {
	return func(o *sqlstore.Options) {
		o.ChangeTracking = true
	}
}

// WithLogger routes store logs to l instead of discarding them.
func WithLogger(l zerolog.Logger) StoreOption {
	return func(o *sqlstore.Options) {
		o.Logger = l
	}
}

// NewStore opens a migrated, private in-memory SQLite store that is closed
// when the test ends.
func NewStore(t testing.TB, opts ...StoreOption) *sqlstore.Store {
	t.Helper()

	o := sqlstore.Options{
		Driver: sqlstore.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		Logger: zerolog.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := sqlstore.Open(o)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
