package store

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// countingStore records calls that reach it. Methods it does not override
// panic through the nil embedded interface, which fails the test loudly.
type countingStore struct {
	Store
	calls int
}

func (c *countingStore) CreateNode(ctx context.Context, owner models.UserID, in NewNode) (*models.Node, error) {
	c.calls++
	return &models.Node{ID: models.NewNodeID(), OwnerID: owner, Kind: in.Kind}, nil
}

func (c *countingStore) GetNode(ctx context.Context, owner models.UserID, id models.NodeID) (*models.Node, error) {
	c.calls++
	return &models.Node{ID: id, OwnerID: owner}, nil
}

func (c *countingStore) UpdateSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID, content datatypes.JSON) (*models.SyncedBlock, error) {
	c.calls++
	return &models.SyncedBlock{ID: id, OwnerID: owner, Content: content, Version: 2}, nil
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	owner := models.NewUserID()
	inner := &countingStore{}
	var frozen atomic.Bool
	ro := NewReadOnlyStore(inner, frozen.Load)

	_, err := ro.CreateNode(ctx, owner, NewNode{Kind: models.NodeKindPage})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	frozen.Store(true)

	_, err = ro.CreateNode(ctx, owner, NewNode{Kind: models.NodeKindPage})
	require.ErrorIs(t, err, ErrReadOnly)
	_, err = ro.UpdateSyncedBlock(ctx, owner, models.NewSyncedBlockID(), datatypes.JSON(`{}`))
	require.ErrorIs(t, err, ErrReadOnly)
	require.ErrorIs(t, ro.DeleteNode(ctx, owner, models.NewNodeID()), ErrReadOnly)
	require.ErrorIs(t, ro.ReorderCategories(ctx, owner, nil), ErrReadOnly)
	require.ErrorIs(t, ro.SeedSystemCategories(ctx, nil), ErrReadOnly)
	assert.Equal(t, 1, inner.calls, "writes must not reach the wrapped store")

	_, err = ro.GetNode(ctx, owner, models.NewNodeID())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	frozen.Store(false)
	_, err = ro.UpdateSyncedBlock(ctx, owner, models.NewSyncedBlockID(), datatypes.JSON(`{}`))
	require.NoError(t, err)
	assert.Same(t, inner, ro.Unwrap())
}
