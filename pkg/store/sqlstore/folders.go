package sqlstore

import (
	"context"
	"strings"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

func folderIDOrNil(id *models.FolderID) any {
	if id == nil {
		return nil
	}
	return *id
}

func sameFolderParent(a, b *models.FolderID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var folderNullable = []string{"parent_id", "color", "icon"}

func (s *Store) CreateFolder(ctx context.Context, owner models.UserID, in store.NewFolder) (*models.Folder, error) {
	const op = "create folder"
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, store.Validation(op, "folder title is required")
	}

	var folder *models.Folder
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := folderScope(owner, in.ParentID)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		if in.ParentID != nil {
			if _, err := s.findFolder(tx, owner, *in.ParentID, true); err != nil {
				return err
			}
		}
		pos, err := s.nextPosition(tx, sc)
		if err != nil {
			return err
		}
		folder = &models.Folder{
			OwnerID:  owner,
			ParentID: in.ParentID,
			Title:    title,
			Color:    in.Color,
			Icon:     in.Icon,
			Position: pos,
		}
		if err := tx.Create(folder).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntityFolder, folder.ID.String(), models.ChangeOperationCreate, folder, folderNullable...)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *Store) GetFolder(ctx context.Context, owner models.UserID, id models.FolderID) (*models.Folder, error) {
	f, err := s.findFolder(s.db.WithContext(ctx), owner, id, false)
	if err != nil {
		return nil, s.classify("get folder", err)
	}
	return f, nil
}

func (s *Store) ListFolders(ctx context.Context, owner models.UserID, parent *models.FolderID) ([]*models.Folder, error) {
	const op = "list folders"
	db := s.db.WithContext(ctx)
	if parent != nil {
		if _, err := s.findFolder(db, owner, *parent, false); err != nil {
			return nil, s.classify(op, err)
		}
	}

	folders := []*models.Folder{}
	q := db.Where("owner_id = ?", owner)
	if parent == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parent)
	}
	if err := q.Order("position ASC, id ASC").Find(&folders).Error; err != nil {
		return nil, s.classify(op, err)
	}
	return folders, nil
}

func (s *Store) UpdateFolder(ctx context.Context, owner models.UserID, id models.FolderID, in store.FolderUpdate) (*models.Folder, error) {
	const op = "update folder"
	var folder *models.Folder
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		f, err := s.findFolder(tx, owner, id, true)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return store.Validation("", "folder title is required")
			}
			updates["title"] = title
			f.Title = title
		}
		if in.Color != nil {
			updates["color"] = *in.Color
			f.Color = *in.Color
		}
		if in.Icon != nil {
			updates["icon"] = *in.Icon
			f.Icon = *in.Icon
		}
		folder = f
		if len(updates) == 0 {
			return nil
		}
		f.UpdatedAt = now()
		updates["updated_at"] = f.UpdatedAt
		if err := tx.Model(&models.Folder{}).Where("id = ?", f.ID).Updates(updates).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntityFolder, f.ID.String(), models.ChangeOperationUpdate, f, folderNullable...)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// MoveFolder reparents a folder. The same ancestor walk as for nodes keeps
// the folder hierarchy acyclic.
func (s *Store) MoveFolder(ctx context.Context, owner models.UserID, id models.FolderID, newParent *models.FolderID, position int) (*models.Folder, error) {
	const op = "move folder"
	if position < store.AppendPosition {
		return nil, store.Validation(op, "invalid position %d", position)
	}
	var folder *models.Folder
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		current, err := s.findFolder(tx, owner, id, false)
		if err != nil {
			return err
		}
		oldScope := folderScope(owner, current.ParentID)
		newScope := folderScope(owner, newParent)
		if err := s.lockScopes(tx, oldScope, newScope); err != nil {
			return err
		}
		f, err := s.findFolder(tx, owner, id, true)
		if err != nil {
			return err
		}
		if !sameFolderParent(f.ParentID, current.ParentID) {
			return store.Conflict("", "folder %s was moved concurrently", id)
		}

		if newParent != nil {
			if *newParent == id {
				return store.Validation("", "cannot move a folder into itself")
			}
			p, err := s.findFolder(tx, owner, *newParent, true)
			if err != nil {
				return err
			}
			err = ensureNotDescendant(p.ID.String(), id.String(), func(cur string) (string, bool, error) {
				var row models.Folder
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

		self := f.ID.String()
		if sameFolderParent(f.ParentID, newParent) {
			slots, err := s.siblings(tx, oldScope)
			if err != nil {
				return err
			}
			order, _ := insertAt(without(ids(slots), self), self, position)
			if err := s.writePositions(tx, oldScope, order, positions(slots)); err != nil {
				return err
			}
		} else {
			oldSlots, err := s.siblings(tx, oldScope)
			if err != nil {
				return err
			}
			newSlots, err := s.siblings(tx, newScope)
			if err != nil {
				return err
			}
			res := tx.Model(&models.Folder{}).
				Where("id = ? AND position = ?", f.ID, f.Position).
				Updates(map[string]any{"parent_id": folderIDOrNil(newParent), "updated_at": now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return store.Conflict("", "folder %s changed concurrently", id)
			}
			newOrder, _ := insertAt(ids(newSlots), self, position)
			newCurrent := positions(newSlots)
			newCurrent[self] = f.Position
			if err := s.writePositions(tx, newScope, newOrder, newCurrent); err != nil {
				return err
			}
			if err := s.writePositions(tx, oldScope, without(ids(oldSlots), self), positions(oldSlots)); err != nil {
				return err
			}
		}

		moved, err := s.findFolder(tx, owner, id, false)
		if err != nil {
			return err
		}
		folder = moved
		return s.recordChange(tx, models.EntityFolder, self, models.ChangeOperationUpdate, moved, folderNullable...)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *Store) ReorderFolders(ctx context.Context, owner models.UserID, parent *models.FolderID, ordered []models.FolderID) error {
	const op = "reorder folders"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := folderScope(owner, parent)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		if parent != nil {
			if _, err := s.findFolder(tx, owner, *parent, true); err != nil {
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

// DeleteFolder removes a folder together with its nested folders.
func (s *Store) DeleteFolder(ctx context.Context, owner models.UserID, id models.FolderID) error {
	const op = "delete folder"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		current, err := s.findFolder(tx, owner, id, false)
		if err != nil {
			return err
		}
		sc := folderScope(owner, current.ParentID)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		f, err := s.findFolder(tx, owner, id, true)
		if err != nil {
			return err
		}
		if !sameFolderParent(f.ParentID, current.ParentID) {
			return store.Conflict("", "folder %s was moved concurrently", id)
		}

		levels := [][]models.FolderID{{f.ID}}
		frontier := []models.FolderID{f.ID}
		for depth := 0; len(frontier) > 0; depth++ {
			if depth >= maxDepth {
				return store.Persistence("", errTreeTooDeep)
			}
			var next []models.FolderID
			err := s.forUpdate(tx).Model(&models.Folder{}).
				Where("owner_id = ? AND parent_id IN ?", owner, frontier).
				Pluck("id", &next).Error
			if err != nil {
				return err
			}
			if len(next) > 0 {
				levels = append(levels, next)
			}
			frontier = next
		}

		for i := len(levels) - 1; i >= 0; i-- {
			if err := tx.Where("owner_id = ? AND id IN ?", owner, levels[i]).Delete(&models.Folder{}).Error; err != nil {
				return err
			}
			for _, fid := range levels[i] {
				if err := s.recordChange(tx, models.EntityFolder, fid.String(), models.ChangeOperationDelete, nil); err != nil {
					return err
				}
			}
		}
		return s.compact(tx, sc)
	})
}
