package sqlstore

import (
	"context"
	"fmt"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

// resolve replaces the content of every synced node with the current content
// of its synced block. Nothing is pushed to referencing nodes on update; this
// read-time lookup is what keeps all references identical.
func (s *Store) resolve(tx *gorm.DB, owner models.UserID, nodes ...*models.Node) error {
	var refs []models.SyncedBlockID
	seen := make(map[models.SyncedBlockID]bool)
	for _, n := range nodes {
		if n.IsSynced() && !seen[*n.SyncedBlockID] {
			seen[*n.SyncedBlockID] = true
			refs = append(refs, *n.SyncedBlockID)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	var blocks []*models.SyncedBlock
	if err := tx.Where("owner_id = ? AND id IN ?", owner, refs).Find(&blocks).Error; err != nil {
		return err
	}
	byID := make(map[models.SyncedBlockID]*models.SyncedBlock, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	for _, n := range nodes {
		if !n.IsSynced() {
			continue
		}
		b, ok := byID[*n.SyncedBlockID]
		if !ok {
			return store.Persistence("", fmt.Errorf("node %s references missing synced block %s", n.ID, n.SyncedBlockID))
		}
		n.Content = b.Content
		n.SyncedVersion = b.Version
	}
	return nil
}

// ResolveContent returns the content a reader of the node sees.
func (s *Store) ResolveContent(ctx context.Context, owner models.UserID, id models.NodeID) (*models.EffectiveContent, error) {
	const op = "resolve content"
	db := s.db.WithContext(ctx)
	n, err := s.findNode(db, owner, id, false)
	if err != nil {
		return nil, s.classify(op, err)
	}
	if err := s.resolve(db, owner, n); err != nil {
		return nil, s.classify(op, err)
	}
	return &models.EffectiveContent{
		NodeID:        n.ID,
		Content:       n.Content,
		SyncedBlockID: n.SyncedBlockID,
		Version:       n.SyncedVersion,
	}, nil
}
