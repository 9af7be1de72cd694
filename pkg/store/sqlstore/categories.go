package sqlstore

import (
	"context"
	"strings"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

var categoryNullable = []string{"owner_id", "color", "icon"}

func categorySlug(name, slug string) string {
	if s := models.Slugify(slug); s != "" {
		return s
	}
	return models.Slugify(name)
}

// slugTaken reports whether another category in sc already uses slug.
func (s *Store) slugTaken(tx *gorm.DB, sc scope, slug string, except *models.CategoryID) (bool, error) {
	q := sc.query(tx).Where("slug = ?", slug)
	if except != nil {
		q = q.Where("id <> ?", *except)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateCategory(ctx context.Context, owner models.UserID, in store.NewCategory) (*models.Category, error) {
	const op = "create category"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, store.Validation(op, "category name is required")
	}
	slug := categorySlug(name, in.Slug)
	if slug == "" {
		return nil, store.Validation(op, "category name %q does not produce a slug", name)
	}

	var category *models.Category
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := categoryScope(&owner)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		taken, err := s.slugTaken(tx, sc, slug, nil)
		if err != nil {
			return err
		}
		if taken {
			return store.Validation("", "category slug %q already exists", slug)
		}
		pos, err := s.nextPosition(tx, sc)
		if err != nil {
			return err
		}
		category = &models.Category{
			OwnerID:  &owner,
			Name:     name,
			Slug:     slug,
			Color:    in.Color,
			Icon:     in.Icon,
			Position: pos,
		}
		if err := tx.Create(category).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntityCategory, category.ID.String(), models.ChangeOperationCreate, category, categoryNullable...)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Store) GetCategory(ctx context.Context, owner models.UserID, id models.CategoryID) (*models.Category, error) {
	c, err := s.findCategory(s.db.WithContext(ctx), owner, id, true, false)
	if err != nil {
		return nil, s.classify("get category", err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, owner models.UserID) ([]*models.Category, error) {
	const op = "list categories"
	db := s.db.WithContext(ctx)

	system := []*models.Category{}
	if err := categoryScope(nil).query(db).Order("position ASC, id ASC").Find(&system).Error; err != nil {
		return nil, s.classify(op, err)
	}
	own := []*models.Category{}
	if err := categoryScope(&owner).query(db).Order("position ASC, id ASC").Find(&own).Error; err != nil {
		return nil, s.classify(op, err)
	}
	return append(system, own...), nil
}

// UpdateCategory edits one of owner's categories. System categories are not
// visible to it and report not found.
func (s *Store) UpdateCategory(ctx context.Context, owner models.UserID, id models.CategoryID, in store.CategoryUpdate) (*models.Category, error) {
	const op = "update category"
	var category *models.Category
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := categoryScope(&owner)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		c, err := s.findCategory(tx, owner, id, false, true)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return store.Validation("", "category name is required")
			}
			updates["name"] = name
			c.Name = name
		}
		if in.Slug != nil {
			slug := models.Slugify(*in.Slug)
			if slug == "" {
				return store.Validation("", "invalid category slug %q", *in.Slug)
			}
			if slug != c.Slug {
				taken, err := s.slugTaken(tx, sc, slug, &c.ID)
				if err != nil {
					return err
				}
				if taken {
					return store.Validation("", "category slug %q already exists", slug)
				}
			}
			updates["slug"] = slug
			c.Slug = slug
		}
		if in.Color != nil {
			updates["color"] = *in.Color
			c.Color = *in.Color
		}
		if in.Icon != nil {
			updates["icon"] = *in.Icon
			c.Icon = *in.Icon
		}
		category = c
		if len(updates) == 0 {
			return nil
		}
		c.UpdatedAt = now()
		updates["updated_at"] = c.UpdatedAt
		if err := tx.Model(&models.Category{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
			return err
		}
		return s.recordChange(tx, models.EntityCategory, c.ID.String(), models.ChangeOperationUpdate, c, categoryNullable...)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// ReorderCategories orders owner's own categories. System categories keep
// their seeded order and may not appear in ordered.
func (s *Store) ReorderCategories(ctx context.Context, owner models.UserID, ordered []models.CategoryID) error {
	const op = "reorder categories"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := categoryScope(&owner)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
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

func (s *Store) DeleteCategory(ctx context.Context, owner models.UserID, id models.CategoryID) error {
	const op = "delete category"
	return s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := categoryScope(&owner)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		c, err := s.findCategory(tx, owner, id, false, true)
		if err != nil {
			return err
		}
		if err := tx.Where("id = ? AND owner_id = ?", c.ID, owner).Delete(&models.Category{}).Error; err != nil {
			return err
		}
		if err := s.recordChange(tx, models.EntityCategory, c.ID.String(), models.ChangeOperationDelete, nil); err != nil {
			return err
		}
		return s.compact(tx, sc)
	})
}

// SeedSystemCategories appends the given categories to the system scope,
// skipping slugs that already exist. Running it again is harmless.
func (s *Store) SeedSystemCategories(ctx context.Context, categories []store.NewCategory) error {
	const op = "seed system categories"
	var added int
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		sc := categoryScope(nil)
		if err := s.lockScopes(tx, sc); err != nil {
			return err
		}
		pos, err := s.nextPosition(tx, sc)
		if err != nil {
			return err
		}
		for _, in := range categories {
			name := strings.TrimSpace(in.Name)
			slug := categorySlug(name, in.Slug)
			if name == "" || slug == "" {
				return store.Validation("", "system category %q needs a name and slug", in.Name)
			}
			taken, err := s.slugTaken(tx, sc, slug, nil)
			if err != nil {
				return err
			}
			if taken {
				continue
			}
			c := &models.Category{
				Name:     name,
				Slug:     slug,
				Color:    in.Color,
				Icon:     in.Icon,
				Position: pos,
			}
			if err := tx.Create(c).Error; err != nil {
				return err
			}
			if err := s.recordChange(tx, models.EntityCategory, c.ID.String(), models.ChangeOperationCreate, c, categoryNullable...); err != nil {
				return err
			}
			pos++
			added++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if added > 0 {
		s.log.Info().Int("added", added).Msg("seeded system categories")
	}
	return nil
}
