package sqlstore_test

import (
	"context"
	"testing"

	"github.com/paduck86/distillai/internal/testenv"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	require.NoError(t, s.SeedSystemCategories(ctx, []store.NewCategory{
		{Name: "Lecture"},
		{Name: "Meeting Notes"},
	}))
	// seeding again only adds what is missing
	require.NoError(t, s.SeedSystemCategories(ctx, []store.NewCategory{
		{Name: "Lecture"},
		{Name: "Paper", Slug: "papers"},
	}))

	reading, err := s.CreateCategory(ctx, owner, store.NewCategory{Name: "Reading List", Color: "#00ff00"})
	require.NoError(t, err)
	assert.Equal(t, "reading-list", reading.Slug)
	assert.False(t, reading.IsSystem())

	todo, err := s.CreateCategory(ctx, owner, store.NewCategory{Name: "Todo"})
	require.NoError(t, err)
	assert.Equal(t, 1, todo.Position)

	all, err := s.ListCategories(ctx, owner)
	require.NoError(t, err)
	slugs := make([]string, len(all))
	for i, c := range all {
		slugs[i] = c.Slug
	}
	assert.Equal(t, []string{"lecture", "meeting-notes", "papers", "reading-list", "todo"}, slugs)
	system := all[0]
	assert.True(t, system.IsSystem())

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := s.CreateCategory(ctx, owner, store.NewCategory{Name: "reading list!"})
		require.ErrorIs(t, err, store.ErrValidation)

		slug := "reading-list"
		_, err = s.UpdateCategory(ctx, owner, todo.ID, store.CategoryUpdate{Slug: &slug})
		require.ErrorIs(t, err, store.ErrValidation)
	})

	t.Run("system categories are read-only", func(t *testing.T) {
		got, err := s.GetCategory(ctx, owner, system.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lecture", got.Name)

		name := "Renamed"
		_, err = s.UpdateCategory(ctx, owner, system.ID, store.CategoryUpdate{Name: &name})
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, s.DeleteCategory(ctx, owner, system.ID), store.ErrNotFound)
		require.ErrorIs(t, s.ReorderCategories(ctx, owner, []models.CategoryID{system.ID, todo.ID, reading.ID}), store.ErrValidation)
	})

	t.Run("other owners", func(t *testing.T) {
		stranger := models.NewUserID()
		_, err := s.GetCategory(ctx, stranger, reading.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		// slugs are unique per owner only
		_, err = s.CreateCategory(ctx, stranger, store.NewCategory{Name: "Reading List"})
		require.NoError(t, err)

		theirs, err := s.ListCategories(ctx, stranger)
		require.NoError(t, err)
		assert.Len(t, theirs, 4)
	})

	t.Run("reorder and delete", func(t *testing.T) {
		require.NoError(t, s.ReorderCategories(ctx, owner, []models.CategoryID{todo.ID, reading.ID}))
		got, err := s.GetCategory(ctx, owner, reading.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Position)

		require.NoError(t, s.DeleteCategory(ctx, owner, todo.ID))
		got, err = s.GetCategory(ctx, owner, reading.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Position)
	})
}
