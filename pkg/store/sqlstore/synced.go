package sqlstore

import (
	"context"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (s *Store) CreateSyncedBlock(ctx context.Context, owner models.UserID, content datatypes.JSON) (*models.SyncedBlock, error) {
	const op = "create synced block"
	sb := &models.SyncedBlock{OwnerID: owner, Content: content, Version: 1}
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		if err := tx.Create(sb).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntitySyncedBlock, sb.ID.String(), models.ChangeOperationCreate, sb, "content")
	})
	if err != nil {
		return nil, err
	}
	return sb, nil
}

func (s *Store) GetSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) (*models.SyncedBlock, error) {
	sb, err := s.findSyncedBlock(s.db.WithContext(ctx), owner, id, false)
	if err != nil {
		return nil, s.classify("get synced block", err)
	}
	return sb, nil
}

func (s *Store) ListSyncedBlocks(ctx context.Context, owner models.UserID) ([]*models.SyncedBlock, error) {
	blocks := []*models.SyncedBlock{}
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).Order("created_at ASC, id ASC").Find(&blocks).Error
	if err != nil {
		return nil, s.classify("list synced blocks", err)
	}
	return blocks, nil
}

// UpdateSyncedBlock replaces the content of a synced block. Concurrent
// updates are last-writer-wins; the version lets editors notice that the
// content changed since they loaded it.
func (s *Store) UpdateSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID, content datatypes.JSON) (*models.SyncedBlock, error) {
	const op = "update synced block"
	var sb *models.SyncedBlock
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		b, err := s.findSyncedBlock(tx, owner, id, true)
		if err != nil {
			return err
		}
		ts := now()
		res := tx.Model(&models.SyncedBlock{}).
			Where("id = ? AND version = ?", b.ID, b.Version).
			Updates(map[string]any{"content": content, "version": b.Version + 1, "updated_at": ts})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return store.Conflict("", "synced block %s changed concurrently", id)
		}
		b.Content = content
		b.Version++
		b.UpdatedAt = ts
		sb = b
		return s.recordChange(tx, models.EntitySyncedBlock, b.ID.String(), models.ChangeOperationUpdate, b, "content")
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("owner", owner.String()).Str("synced_block", id.String()).Int64("version", sb.Version).Msg("synced block updated")
	return sb, nil
}

// DeleteSyncedBlock removes a synced block that no node references. The
// block row is locked first, so a concurrent link either lands before the
// reference count and blocks the delete, or finds the block gone.
func (s *Store) DeleteSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) error {
	const op = "delete synced block"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		sb, err := s.findSyncedBlock(tx, owner, id, true)
		if err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.Node{}).Where("owner_id = ? AND synced_block_id = ?", owner, sb.ID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return store.Conflict("", "synced block has %d active references", refs)
		}
		if err := tx.Where("id = ? AND owner_id = ?", sb.ID, owner).Delete(&models.SyncedBlock{}).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntitySyncedBlock, sb.ID.String(), models.ChangeOperationDelete, nil)
	})
}

// ConvertToSynced turns a plain block into the first reference of a new
// synced block carrying the block's content. The block's inline content is
// cleared; from now on it reads through the reference.
func (s *Store) ConvertToSynced(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.SyncedBlock, error) {
	const op = "convert to synced"
	var sb *models.SyncedBlock
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		n, err := s.findNode(tx, owner, nodeID, true)
		if err != nil {
			return err
		}
		if n.Kind != models.NodeKindBlock {
			return store.Validation("", "only blocks can be converted, node %s is a %s", n.ID, n.Kind)
		}
		if n.IsSynced() {
			return store.Validation("", "node %s is already synced", n.ID)
		}

		sb = &models.SyncedBlock{OwnerID: owner, Content: n.Content, Version: 1}
		if err := tx.Create(sb).Error; err != nil {
			return err
		}
		if err := s.recordChange(tx, models.EntitySyncedBlock, sb.ID.String(), models.ChangeOperationCreate, sb, "content"); err != nil {
			return err
		}
		return s.attach(tx, n, sb.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("owner", owner.String()).Str("node", nodeID.String()).Str("synced_block", sb.ID.String()).Msg("block converted to synced")
	return sb, nil
}

// LinkSyncedBlock points a block at an existing synced block. Linking to the
// block it already references is a no-op.
func (s *Store) LinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID, syncedID models.SyncedBlockID) (*models.Node, error) {
	const op = "link synced block"
	var node *models.Node
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		n, err := s.findNode(tx, owner, nodeID, true)
		if err != nil {
			return err
		}
		sb, err := s.findSyncedBlock(tx, owner, syncedID, true)
		if err != nil {
			return err
		}
		if n.Kind != models.NodeKindBlock {
			return store.Validation("", "only blocks can reference a synced block, node %s is a %s", n.ID, n.Kind)
		}
		if n.IsSynced() {
			if *n.SyncedBlockID != sb.ID {
				return store.Validation("", "node %s already references synced block %s", n.ID, n.SyncedBlockID)
			}
		} else if err := s.attach(tx, n, sb.ID); err != nil {
			return err
		}
		node = n
		return s.resolve(tx, owner, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// UnlinkSyncedBlock drops the node's reference. The node keeps empty inline
// content and the synced block is left as it is, even with no references.
// Unlinking a node that is not synced is a no-op.
func (s *Store) UnlinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.Node, error) {
	const op = "unlink synced block"
	var node *models.Node
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		n, err := s.findNode(tx, owner, nodeID, true)
		if err != nil {
			return err
		}
		if n.IsSynced() {
			ts := now()
			res := tx.Model(&models.Node{}).
				Where("id = ? AND synced_block_id = ?", n.ID, *n.SyncedBlockID).
				Updates(map[string]any{"synced_block_id": nil, "content": nil, "updated_at": ts})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return store.Conflict("", "node %s changed concurrently", n.ID)
			}
			n.SyncedBlockID = nil
			n.Content = nil
			n.UpdatedAt = ts
			if err := s.recordChange(tx, models.EntityNode, n.ID.String(), models.ChangeOperationUpdate, n, nodeNullable...); err != nil {
				return err
			}
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// GetReferences lists the nodes that mirror a synced block, oldest first.
func (s *Store) GetReferences(ctx context.Context, owner models.UserID, syncedID models.SyncedBlockID) ([]*models.Node, error) {
	const op = "get references"
	db := s.db.WithContext(ctx)
	if _, err := s.findSyncedBlock(db, owner, syncedID, false); err != nil {
		return nil, s.classify(op, err)
	}

	nodes := []*models.Node{}
	err := db.Where("owner_id = ? AND synced_block_id = ?", owner, syncedID).
		Order("created_at ASC, id ASC").
		Find(&nodes).Error
	if err != nil {
		return nil, s.classify(op, err)
	}
	if err := s.resolve(db, owner, nodes...); err != nil {
		return nil, s.classify(op, err)
	}
	return nodes, nil
}

// attach sets the node's reference and clears its inline content. The update
// only applies while the node is still unsynced.
func (s *Store) attach(tx *gorm.DB, n *models.Node, syncedID models.SyncedBlockID) error {
	ts := now()
	res := tx.Model(&models.Node{}).
		Where("id = ? AND synced_block_id IS NULL", n.ID).
		Updates(map[string]any{"synced_block_id": syncedID, "content": nil, "updated_at": ts})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return store.Conflict("", "node %s changed concurrently", n.ID)
	}
	n.SyncedBlockID = &syncedID
	n.Content = nil
	n.UpdatedAt = ts
	return s.recordChange(tx, models.EntityNode, n.ID.String(), models.ChangeOperationUpdate, n, nodeNullable...)
}
