package store

import (
	"context"

	"github.com/paduck86/distillai/pkg/models"
	"gorm.io/datatypes"
)

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports
// true. Reads always pass through.
//
// The flag is consulted on every call, so maintenance jobs (a final replica
// catch-up, a backup) can freeze and thaw the API without rebuilding it.
// Rejected writes return ErrReadOnly.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) CreateNode(ctx context.Context, owner models.UserID, in NewNode) (*models.Node, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CreateNode(ctx, owner, in)
}

func (r *ReadOnlyStore) UpdateNode(ctx context.Context, owner models.UserID, id models.NodeID, in NodeUpdate) (*models.Node, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UpdateNode(ctx, owner, id, in)
}

func (r *ReadOnlyStore) MoveNode(ctx context.Context, owner models.UserID, id models.NodeID, newParent *models.NodeID, position int) (*models.Node, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MoveNode(ctx, owner, id, newParent, position)
}

func (r *ReadOnlyStore) ReorderNodes(ctx context.Context, owner models.UserID, parent *models.NodeID, ordered []models.NodeID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderNodes(ctx, owner, parent, ordered)
}

func (r *ReadOnlyStore) DeleteNode(ctx context.Context, owner models.UserID, id models.NodeID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteNode(ctx, owner, id)
}

func (r *ReadOnlyStore) CreateSyncedBlock(ctx context.Context, owner models.UserID, content datatypes.JSON) (*models.SyncedBlock, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CreateSyncedBlock(ctx, owner, content)
}

func (r *ReadOnlyStore) UpdateSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID, content datatypes.JSON) (*models.SyncedBlock, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UpdateSyncedBlock(ctx, owner, id, content)
}

func (r *ReadOnlyStore) DeleteSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteSyncedBlock(ctx, owner, id)
}

func (r *ReadOnlyStore) ConvertToSynced(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.SyncedBlock, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.ConvertToSynced(ctx, owner, nodeID)
}

func (r *ReadOnlyStore) LinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID, syncedID models.SyncedBlockID) (*models.Node, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.LinkSyncedBlock(ctx, owner, nodeID, syncedID)
}

func (r *ReadOnlyStore) UnlinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.Node, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UnlinkSyncedBlock(ctx, owner, nodeID)
}

func (r *ReadOnlyStore) CreateFolder(ctx context.Context, owner models.UserID, in NewFolder) (*models.Folder, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CreateFolder(ctx, owner, in)
}

func (r *ReadOnlyStore) UpdateFolder(ctx context.Context, owner models.UserID, id models.FolderID, in FolderUpdate) (*models.Folder, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UpdateFolder(ctx, owner, id, in)
}

func (r *ReadOnlyStore) MoveFolder(ctx context.Context, owner models.UserID, id models.FolderID, newParent *models.FolderID, position int) (*models.Folder, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MoveFolder(ctx, owner, id, newParent, position)
}

func (r *ReadOnlyStore) ReorderFolders(ctx context.Context, owner models.UserID, parent *models.FolderID, ordered []models.FolderID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderFolders(ctx, owner, parent, ordered)
}

func (r *ReadOnlyStore) DeleteFolder(ctx context.Context, owner models.UserID, id models.FolderID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteFolder(ctx, owner, id)
}

func (r *ReadOnlyStore) CreateCategory(ctx context.Context, owner models.UserID, in NewCategory) (*models.Category, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CreateCategory(ctx, owner, in)
}

func (r *ReadOnlyStore) UpdateCategory(ctx context.Context, owner models.UserID, id models.CategoryID, in CategoryUpdate) (*models.Category, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UpdateCategory(ctx, owner, id, in)
}

func (r *ReadOnlyStore) ReorderCategories(ctx context.Context, owner models.UserID, ordered []models.CategoryID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderCategories(ctx, owner, ordered)
}

func (r *ReadOnlyStore) DeleteCategory(ctx context.Context, owner models.UserID, id models.CategoryID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteCategory(ctx, owner, id)
}

func (r *ReadOnlyStore) SeedSystemCategories(ctx context.Context, categories []NewCategory) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.SeedSystemCategories(ctx, categories)
}
