package sqlstore

import (
	"context"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

func nodeIDOrNil(id *models.NodeID) any {
	if id == nil {
		return nil
	}
	return *id
}

func sameNodeParent(a, b *models.NodeID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// checkNodeParent verifies that parent exists, belongs to owner and can hold
// children. The parent row is locked for the rest of the transaction so it
// cannot be deleted underneath the caller.
func (s *Store) checkNodeParent(tx *gorm.DB, owner models.UserID, parent models.NodeID) (*models.Node, error) {
	p, err := s.findNode(tx, owner, parent, true)
	if err != nil {
		return nil, err
	}
	if !p.Kind.Parentable() {
		return nil, store.Validation("", "a %s cannot have children", p.Kind)
	}
	return p, nil
}

// CreateNode appends a node to the end of its sibling set.
func (s *Store) CreateNode(ctx context.Context, owner models.UserID, in store.NewNode) (*models.Node, error) {
	const op = "create node"
	if !in.Kind.Valid() {
		return nil, store.Validation(op, "invalid node kind %q", in.Kind)
	}

	var node *models.Node
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := nodeScope(owner, in.ParentID)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		if in.ParentID != nil {
			if _, err := s.checkNodeParent(tx, owner, *in.ParentID); err != nil {
				return err
			}
		}
		pos, err := s.nextPosition(tx, sc)
		if err != nil {
			return err
		}

		node = &models.Node{
			OwnerID:  owner,
			ParentID: in.ParentID,
			Kind:     in.Kind,
			Title:    in.Title,
			Content:  in.Content,
			Position: pos,
		}
		if err := tx.Create(node).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntityNode, node.ID.String(), models.ChangeOperationCreate, node, nodeNullable...)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("owner", owner.String()).Str("node", node.ID.String()).Str("kind", string(node.Kind)).Int("position", node.Position).Msg("node created")
	return node, nil
}

func (s *Store) GetNode(ctx context.Context, owner models.UserID, id models.NodeID) (*models.Node, error) {
	const op = "get node"
	db := s.db.WithContext(ctx)
	n, err := s.findNode(db, owner, id, false)
	if err != nil {
		return nil, s.classify(op, err)
	}
	if err := s.resolve(db, owner, n); err != nil {
		return nil, s.classify(op, err)
	}
	return n, nil
}

func (s *Store) ListChildren(ctx context.Context, owner models.UserID, parent *models.NodeID) ([]*models.Node, error) {
	const op = "list children"
	db := s.db.WithContext(ctx)
	if parent != nil {
		if _, err := s.findNode(db, owner, *parent, false); err != nil {
			return nil, s.classify(op, err)
		}
	}

	nodes := []*models.Node{}
	q := db.Where("owner_id = ?", owner)
	if parent == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parent)
	}
	if err := q.Order("position ASC, id ASC").Find(&nodes).Error; err != nil {
		return nil, s.classify(op, err)
	}
	if err := s.resolve(db, owner, nodes...); err != nil {
		return nil, s.classify(op, err)
	}
	return nodes, nil
}

// ListTree returns the owner's whole tree flattened depth-first, children in
// position order.
func (s *Store) ListTree(ctx context.Context, owner models.UserID) ([]*models.Node, error) {
	const op = "list tree"
	db := s.db.WithContext(ctx)

	var all []*models.Node
	if err := db.Where("owner_id = ?", owner).Order("position ASC, id ASC").Find(&all).Error; err != nil {
		return nil, s.classify(op, err)
	}

	children := make(map[models.NodeID][]*models.Node)
	var roots []*models.Node
	for _, n := range all {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	out := make([]*models.Node, 0, len(all))
	var walk func(level []*models.Node)
	walk = func(level []*models.Node) {
		for _, n := range level {
			out = append(out, n)
			walk(children[n.ID])
		}
	}
	walk(roots)

	if err := s.resolve(db, owner, out...); err != nil {
		return nil, s.classify(op, err)
	}
	return out, nil
}

func (s *Store) UpdateNode(ctx context.Context, owner models.UserID, id models.NodeID, in store.NodeUpdate) (*models.Node, error) {
	const op = "update node"
	var node *models.Node
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		n, err := s.findNode(tx, owner, id, true)
		if err != nil {
			return err
		}
		if in.Content != nil && n.IsSynced() {
			return store.Validation("", "node %s is synced; update synced block %s instead", n.ID, n.SyncedBlockID)
		}

		updates := map[string]any{}
		if in.Title != nil {
			updates["title"] = *in.Title
			n.Title = *in.Title
		}
		if in.Content != nil {
			updates["content"] = *in.Content
			n.Content = *in.Content
		}
		if len(updates) > 0 {
			n.UpdatedAt = now()
			updates["updated_at"] = n.UpdatedAt
			if err := tx.Model(&models.Node{}).Where("id = ?", n.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := s.recordChange(tx, models.EntityNode, n.ID.String(), models.ChangeOperationUpdate, n, nodeNullable...); err != nil {
				return err
			}
		}

		node = n
		return s.resolve(tx, owner, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// MoveNode reparents id under newParent at position. Both sibling sets are
// renumbered in the same transaction.
func (s *Store) MoveNode(ctx context.Context, owner models.UserID, id models.NodeID, newParent *models.NodeID, position int) (*models.Node, error) {
	const op = "move node"
	if position < store.AppendPosition {
		return nil, store.Validation(op, "invalid position %d", position)
	}
	var node *models.Node
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		current, err := s.findNode(tx, owner, id, false)
		if err != nil {
			return err
		}
		oldScope := nodeScope(owner, current.ParentID)
		newScope := nodeScope(owner, newParent)
		if err := s.lockScopes(tx, oldScope, newScope); err != nil {
			return err
		}

		n, err := s.findNode(tx, owner, id, true)
		if err != nil {
			return err
		}
		if !sameNodeParent(n.ParentID, current.ParentID) {
			return store.Conflict("", "node %s was moved concurrently", id)
		}

		if newParent != nil {
			if *newParent == id {
				return store.Validation("", "cannot move a node into itself")
			}
			p, err := s.checkNodeParent(tx, owner, *newParent)
			if err != nil {
				return err
			}
			err = ensureNotDescendant(p.ID.String(), id.String(), func(cur string) (string, bool, error) {
				var row models.Node
				if err := tx.Select("id, parent_id").Where("id = ? AND owner_id = ?", cur, owner).First(&row).Error; err != nil {
					return "", false, err
				}
				if row.ParentID == nil {
					return "", false, nil
				}
				return row.ParentID.String(), true, nil
			})
			if err != nil {
				return err
			}
		}

		self := n.ID.String()
		if sameNodeParent(n.ParentID, newParent) {
			slots, err := s.siblings(tx, oldScope)
			if err != nil {
				return err
			}
			order, idx := insertAt(without(ids(slots), self), self, position)
			if err := s.writePositions(tx, oldScope, order, positions(slots)); err != nil {
				return err
			}
			n.Position = idx
		} else {
			oldSlots, err := s.siblings(tx, oldScope)
			if err != nil {
				return err
			}
			newSlots, err := s.siblings(tx, newScope)
			if err != nil {
				return err
			}

			res := tx.Model(&models.Node{}).
				Where("id = ? AND position = ?", n.ID, n.Position).
				Updates(map[string]any{"parent_id": nodeIDOrNil(newParent), "updated_at": now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return store.Conflict("", "node %s changed concurrently", id)
			}

			newOrder, idx := insertAt(ids(newSlots), self, position)
			newCurrent := positions(newSlots)
			newCurrent[self] = n.Position
			if err := s.writePositions(tx, newScope, newOrder, newCurrent); err != nil {
				return err
			}
			if err := s.writePositions(tx, oldScope, without(ids(oldSlots), self), positions(oldSlots)); err != nil {
				return err
			}
			n.ParentID = newParent
			n.Position = idx
		}

		moved, err := s.findNode(tx, owner, id, false)
		if err != nil {
			return err
		}
		if err := s.recordChange(tx, models.EntityNode, self, models.ChangeOperationUpdate, moved, nodeNullable...); err != nil {
			return err
		}
		node = moved
		return s.resolve(tx, owner, node)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("owner", owner.String()).Str("node", id.String()).Int("position", node.Position).Msg("node moved")
	return node, nil
}

// ReorderNodes rewrites the positions of parent's children to follow
// ordered. Nothing changes unless ordered is exactly the current child set.
func (s *Store) ReorderNodes(ctx context.Context, owner models.UserID, parent *models.NodeID, ordered []models.NodeID) error {
	const op = "reorder nodes"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := nodeScope(owner, parent)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		if parent != nil {
			if _, err := s.findNode(tx, owner, *parent, true); err != nil {
				return err
			}
		}

		slots, err := s.siblings(tx, sc)
		if err != nil {
			return err
		}
		requested := make([]string, len(ordered))
		for i, id := range ordered {
			requested[i] = id.String()
		}
		if err := sameSet(ids(slots), requested); err != nil {
			return err
		}
		return s.writePositions(tx, sc, requested, positions(slots))
	})
}

// DeleteNode removes id and its whole subtree. References held by removed
// nodes disappear with them; the synced blocks themselves stay.
func (s *Store) DeleteNode(ctx context.Context, owner models.UserID, id models.NodeID) error {
	const op = "delete node"
	var removed int
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		current, err := s.findNode(tx, owner, id, false)
		if err != nil {
			return err
		}
		sc := nodeScope(owner, current.ParentID)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		n, err := s.findNode(tx, owner, id, true)
		if err != nil {
			return err
		}
		if !sameNodeParent(n.ParentID, current.ParentID) {
			return store.Conflict("", "node %s was moved concurrently", id)
		}

		levels, err := s.nodeSubtree(tx, owner, n.ID)
		if err != nil {
			return err
		}
		// deepest level first
		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.Where("owner_id = ? AND id IN ?", owner, levels[i]).Delete(&models.Node{}).Error; err != nil {
				return err
			}
			for _, nid := range levels[i] {
				if err := s.recordChange(tx, models.EntityNode, nid.String(), models.ChangeOperationDelete, nil); err != nil {
					return err
				}
			}
			removed += len(levels[i])
		}
		return s.compact(tx, sc)
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("owner", owner.String()).Str("node", id.String()).Int("removed", removed).Msg("node deleted")
	return nil
}

// nodeSubtree returns root and its descendants grouped by depth. Each level
// is read with row locks so a concurrent insert under a node being deleted
// either finishes first and is collected, or finds its parent gone.
func (s *Store) nodeSubtree(tx *gorm.DB, owner models.UserID, root models.NodeID) ([][]models.NodeID, error) {
	levels := [][]models.NodeID{{root}}
	frontier := []models.NodeID{root}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= maxDepth {
			return nil, store.Persistence("", errTreeTooDeep)
		}
		var next []models.NodeID
		err := s.forUpdate(tx).Model(&models.Node{}).
			Where("owner_id = ? AND parent_id IN ?", owner, frontier).
			Order("position ASC").
			Pluck("id", &next).Error
		if err != nil {
			return nil, err
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}
	return levels, nil
}
