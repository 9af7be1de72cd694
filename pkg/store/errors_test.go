package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := Conflict("delete synced block", "synced block has %d active references", 2)
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, "delete synced block: synced block has 2 active references", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.Equal(t, KindConflict, KindOf(wrapped))
}

func TestPersistenceUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("create node", cause)
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "create node: connection reset", err.Error())
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNotFound, KindValidation, KindConflict, KindPersistence} {
		require.Equal(t, k, ParseKind(k.String()))
	}
	require.Equal(t, KindUnknown, ParseKind("teapot"))
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
