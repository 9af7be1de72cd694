package sqlstore

import (
	"errors"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

// The guard functions are the single ownership check of the store: a lookup
// keyed by (id, owner_id). A row owned by someone else is invisible and
// reported exactly like a missing one.

func (s *Store) findNode(tx *gorm.DB, owner models.UserID, id models.NodeID, lock bool) (*models.Node, error) {
	var n models.Node
	q := tx
	if lock {
		q = s.forUpdate(tx)
	}
	err := q.Where("id = ? AND owner_id = ?", id, owner).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("", "node %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) findSyncedBlock(tx *gorm.DB, owner models.UserID, id models.SyncedBlockID, lock bool) (*models.SyncedBlock, error) {
	var sb models.SyncedBlock
	q := tx
	if lock {
		q = s.forUpdate(tx)
	}
	err := q.Where("id = ? AND owner_id = ?", id, owner).First(&sb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("", "synced block %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &sb, nil
}

func (s *Store) findFolder(tx *gorm.DB, owner models.UserID, id models.FolderID, lock bool) (*models.Folder, error) {
	var f models.Folder
	q := tx
	if lock {
		q = s.forUpdate(tx)
	}
	err := q.Where("id = ? AND owner_id = ?", id, owner).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("", "folder %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// findCategory returns a category owned by owner. When includeSystem is set
// system categories are visible too, which is only ever true for reads.
func (s *Store) findCategory(tx *gorm.DB, owner models.UserID, id models.CategoryID, includeSystem, lock bool) (*models.Category, error) {
	var c models.Category
	q := tx
	if lock {
		q = s.forUpdate(tx)
	}
	if includeSystem {
		q = q.Where("id = ? AND (owner_id = ? OR owner_id IS NULL)", id, owner)
	} else {
		q = q.Where("id = ? AND owner_id = ?", id, owner)
	}
	err := q.First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.NotFound("", "category %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// maxDepth bounds ancestor walks. A longer parent chain means the stored
// tree is corrupt.
const maxDepth = 4096

var errTreeTooDeep = errors.New("parent chain exceeds maximum depth")

// ensureNotDescendant walks from start up to the root through parentOf and
// fails validation when it meets target. The walk moves from the proposed
// parent towards the root, so it is bounded by the tree depth.
func ensureNotDescendant(start, target string, parentOf func(id string) (string, bool, error)) error {
	cur := start
	for hops := 0; hops < maxDepth; hops++ {
		if cur == target {
			return store.Validation("", "cannot move an item into itself or one of its descendants")
		}
		parent, ok, err := parentOf(cur)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cur = parent
	}
	return store.Persistence("", errTreeTooDeep)
}
