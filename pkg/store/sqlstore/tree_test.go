package sqlstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/paduck86/distillai/internal/testenv"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/paduck86/distillai/pkg/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func createNode(t *testing.T, s *sqlstore.Store, owner models.UserID, parent *models.NodeID, kind models.NodeKind, title string) *models.Node {
	t.Helper()
	n, err := s.CreateNode(context.Background(), owner, store.NewNode{ParentID: parent, Kind: kind, Title: title})
	require.NoError(t, err)
	return n
}

func createBlock(t *testing.T, s *sqlstore.Store, owner models.UserID, parent *models.NodeID, content string) *models.Node {
	t.Helper()
	n, err := s.CreateNode(context.Background(), owner, store.NewNode{
		ParentID: parent,
		Kind:     models.NodeKindBlock,
		Content:  datatypes.JSON(content),
	})
	require.NoError(t, err)
	return n
}

// childTitles returns the titles of parent's children and checks that their
// positions are exactly 0..n-1.
func childTitles(t *testing.T, s *sqlstore.Store, owner models.UserID, parent *models.NodeID) []string {
	t.Helper()
	children, err := s.ListChildren(context.Background(), owner, parent)
	require.NoError(t, err)
	titles := make([]string, len(children))
	for i, c := range children {
		assert.Equal(t, i, c.Position, "position of %q", c.Title)
		titles[i] = c.Title
	}
	return titles
}

func TestCreateNode(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	t.Run("appends with dense positions", func(t *testing.T) {
		page := createNode(t, s, owner, nil, models.NodeKindPage, "page")
		for _, title := range []string{"a", "b", "c"} {
			createNode(t, s, owner, &page.ID, models.NodeKindBlock, title)
		}
		assert.Equal(t, []string{"a", "b", "c"}, childTitles(t, s, owner, &page.ID))
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		_, err := s.CreateNode(ctx, owner, store.NewNode{Kind: "widget"})
		require.ErrorIs(t, err, store.ErrValidation)
	})

	t.Run("rejects a block parent", func(t *testing.T) {
		block := createNode(t, s, owner, nil, models.NodeKindBlock, "leaf")
		_, err := s.CreateNode(ctx, owner, store.NewNode{ParentID: &block.ID, Kind: models.NodeKindBlock})
		require.ErrorIs(t, err, store.ErrValidation)
	})

	t.Run("rejects a missing parent", func(t *testing.T) {
		missing := models.NewNodeID()
		_, err := s.CreateNode(ctx, owner, store.NewNode{ParentID: &missing, Kind: models.NodeKindBlock})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestOwnershipGuard(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	alice := models.NewUserID()
	bob := models.NewUserID()

	page := createNode(t, s, alice, nil, models.NodeKindPage, "private")
	block := createBlock(t, s, alice, &page.ID, `{"text":"secret"}`)
	sb, err := s.CreateSyncedBlock(ctx, alice, datatypes.JSON(`{"text":"shared"}`))
	require.NoError(t, err)
	bobBlock := createBlock(t, s, bob, nil, `{}`)

	title := "stolen"
	checks := map[string]error{}
	_, checks["get"] = s.GetNode(ctx, bob, page.ID)
	_, checks["list children"] = s.ListChildren(ctx, bob, &page.ID)
	_, checks["update"] = s.UpdateNode(ctx, bob, page.ID, store.NodeUpdate{Title: &title})
	_, checks["move"] = s.MoveNode(ctx, bob, block.ID, nil, 0)
	_, checks["move under foreign parent"] = s.MoveNode(ctx, bob, bobBlock.ID, &page.ID, 0)
	_, checks["create under foreign parent"] = s.CreateNode(ctx, bob, store.NewNode{ParentID: &page.ID, Kind: models.NodeKindBlock})
	checks["reorder"] = s.ReorderNodes(ctx, bob, &page.ID, []models.NodeID{block.ID})
	checks["delete"] = s.DeleteNode(ctx, bob, page.ID)
	_, checks["resolve"] = s.ResolveContent(ctx, bob, block.ID)
	_, checks["get synced"] = s.GetSyncedBlock(ctx, bob, sb.ID)
	_, checks["update synced"] = s.UpdateSyncedBlock(ctx, bob, sb.ID, datatypes.JSON(`{}`))
	checks["delete synced"] = s.DeleteSyncedBlock(ctx, bob, sb.ID)
	_, checks["convert"] = s.ConvertToSynced(ctx, bob, block.ID)
	_, checks["link foreign block"] = s.LinkSyncedBlock(ctx, bob, bobBlock.ID, sb.ID)
	_, checks["unlink"] = s.UnlinkSyncedBlock(ctx, bob, block.ID)
	_, checks["references"] = s.GetReferences(ctx, bob, sb.ID)

	for name, err := range checks {
		assert.ErrorIs(t, err, store.ErrNotFound, name)
		assert.Equal(t, store.KindNotFound, store.KindOf(err), name)
	}

	got, err := s.GetNode(ctx, alice, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
}

func TestUpdateNode(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()
	block := createBlock(t, s, owner, nil, `{"text":"v1"}`)

	title := "renamed"
	content := datatypes.JSON(`{"text":"v2"}`)
	n, err := s.UpdateNode(ctx, owner, block.ID, store.NodeUpdate{Title: &title, Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "renamed", n.Title)

	got, err := s.GetNode(ctx, owner, block.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.JSONEq(t, `{"text":"v2"}`, string(got.Content))
}

func TestMoveNode(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	p1 := createNode(t, s, owner, nil, models.NodeKindPage, "p1")
	p2 := createNode(t, s, owner, nil, models.NodeKindPage, "p2")
	x := createNode(t, s, owner, &p1.ID, models.NodeKindBlock, "x")
	y := createNode(t, s, owner, &p1.ID, models.NodeKindBlock, "y")
	z := createNode(t, s, owner, &p1.ID, models.NodeKindBlock, "z")
	createNode(t, s, owner, &p2.ID, models.NodeKindBlock, "w")

	t.Run("within the same parent", func(t *testing.T) {
		moved, err := s.MoveNode(ctx, owner, z.ID, &p1.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, moved.Position)
		assert.Equal(t, []string{"z", "x", "y"}, childTitles(t, s, owner, &p1.ID))
	})

	t.Run("to another parent", func(t *testing.T) {
		moved, err := s.MoveNode(ctx, owner, x.ID, &p2.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, moved.ParentID)
		assert.Equal(t, p2.ID, *moved.ParentID)
		assert.Equal(t, []string{"z", "y"}, childTitles(t, s, owner, &p1.ID))
		assert.Equal(t, []string{"x", "w"}, childTitles(t, s, owner, &p2.ID))
	})

	t.Run("past the end appends", func(t *testing.T) {
		moved, err := s.MoveNode(ctx, owner, y.ID, &p2.ID, 99)
		require.NoError(t, err)
		assert.Equal(t, 2, moved.Position)
		assert.Equal(t, []string{"x", "w", "y"}, childTitles(t, s, owner, &p2.ID))
		assert.Equal(t, []string{"z"}, childTitles(t, s, owner, &p1.ID))
	})

	t.Run("to the root", func(t *testing.T) {
		_, err := s.MoveNode(ctx, owner, z.ID, nil, store.AppendPosition)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2", "z"}, childTitles(t, s, owner, nil))
		assert.Empty(t, childTitles(t, s, owner, &p1.ID))
	})

	t.Run("under a block fails", func(t *testing.T) {
		_, err := s.MoveNode(ctx, owner, p1.ID, &z.ID, 0)
		require.ErrorIs(t, err, store.ErrValidation)
	})

	t.Run("negative position fails", func(t *testing.T) {
		_, err := s.MoveNode(ctx, owner, x.ID, &p1.ID, -5)
		require.ErrorIs(t, err, store.ErrValidation)
		assert.Equal(t, []string{"x", "w", "y"}, childTitles(t, s, owner, &p2.ID))
	})
}

func TestMoveNodeRejectsCycles(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	root := createNode(t, s, owner, nil, models.NodeKindFolder, "root")
	mid := createNode(t, s, owner, &root.ID, models.NodeKindPage, "mid")
	leaf := createNode(t, s, owner, &mid.ID, models.NodeKindPage, "leaf")

	_, err := s.MoveNode(ctx, owner, root.ID, &root.ID, 0)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = s.MoveNode(ctx, owner, root.ID, &leaf.ID, 0)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = s.MoveNode(ctx, owner, mid.ID, &leaf.ID, 0)
	require.ErrorIs(t, err, store.ErrValidation)

	got, err := s.GetNode(ctx, owner, mid.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, root.ID, *got.ParentID)
	assert.Equal(t, []string{"root"}, childTitles(t, s, owner, nil))
}

func TestReorderNodes(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	page := createNode(t, s, owner, nil, models.NodeKindPage, "page")
	a := createNode(t, s, owner, &page.ID, models.NodeKindBlock, "a")
	b := createNode(t, s, owner, &page.ID, models.NodeKindBlock, "b")
	c := createNode(t, s, owner, &page.ID, models.NodeKindBlock, "c")
	stranger := createNode(t, s, owner, nil, models.NodeKindBlock, "stranger")

	require.NoError(t, s.ReorderNodes(ctx, owner, &page.ID, []models.NodeID{c.ID, a.ID, b.ID}))
	assert.Equal(t, []string{"c", "a", "b"}, childTitles(t, s, owner, &page.ID))

	invalid := map[string][]models.NodeID{
		"missing child":   {c.ID, a.ID},
		"duplicate child": {c.ID, a.ID, a.ID},
		"foreign child":   {c.ID, a.ID, stranger.ID},
		"extra child":     {c.ID, a.ID, b.ID, stranger.ID},
	}
	for name, ordered := range invalid {
		err := s.ReorderNodes(ctx, owner, &page.ID, ordered)
		assert.ErrorIs(t, err, store.ErrValidation, name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, childTitles(t, s, owner, &page.ID))
}

func TestDeleteNodeCascades(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	createNode(t, s, owner, nil, models.NodeKindPage, "first")
	doomed := createNode(t, s, owner, nil, models.NodeKindPage, "doomed")
	createNode(t, s, owner, nil, models.NodeKindPage, "last")
	sub := createNode(t, s, owner, &doomed.ID, models.NodeKindPage, "sub")
	block := createBlock(t, s, owner, &sub.ID, `{"text":"kept"}`)
	sb, err := s.ConvertToSynced(ctx, owner, block.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, owner, doomed.ID))

	for _, id := range []models.NodeID{doomed.ID, sub.ID, block.ID} {
		_, err := s.GetNode(ctx, owner, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	assert.Equal(t, []string{"first", "last"}, childTitles(t, s, owner, nil))

	kept, err := s.GetSyncedBlock(ctx, owner, sb.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"kept"}`, string(kept.Content))

	refs, err := s.GetReferences(ctx, owner, sb.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)
	require.NoError(t, s.DeleteSyncedBlock(ctx, owner, sb.ID))
}

func TestDeleteNodeRollsBackFailedCascade(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	root := createNode(t, s, owner, nil, models.NodeKindPage, "root")
	child := createNode(t, s, owner, &root.ID, models.NodeKindPage, "child")
	block := createBlock(t, s, owner, &child.ID, `{"text":"leaf"}`)

	deletes := 0
	cb := s.DB().Callback().Delete()
	require.NoError(t, cb.Before("gorm:delete").Register("test:fail_second_delete", func(db *gorm.DB) {
		if db.Statement.Table != "nodes" {
			return
		}
		deletes++
		if deletes == 2 {
			db.AddError(errors.New("disk gone"))
		}
	}))
	t.Cleanup(func() { _ = cb.Remove("test:fail_second_delete") })

	err := s.DeleteNode(ctx, owner, root.ID)
	require.ErrorIs(t, err, store.ErrPersistence)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, 2, deletes)

	nodes, err := s.ListTree(ctx, owner)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, id := range []models.NodeID{root.ID, child.ID, block.ID} {
		_, err := s.GetNode(ctx, owner, id)
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{"root"}, childTitles(t, s, owner, nil))
}

func TestListTree(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	a := createNode(t, s, owner, nil, models.NodeKindFolder, "a")
	b := createNode(t, s, owner, nil, models.NodeKindPage, "b")
	a1 := createNode(t, s, owner, &a.ID, models.NodeKindPage, "a1")
	createNode(t, s, owner, &a1.ID, models.NodeKindBlock, "a1x")
	createNode(t, s, owner, &a.ID, models.NodeKindPage, "a2")
	createNode(t, s, owner, &b.ID, models.NodeKindBlock, "b1")
	createNode(t, s, models.NewUserID(), nil, models.NodeKindPage, "other owner")

	nodes, err := s.ListTree(ctx, owner)
	require.NoError(t, err)
	titles := make([]string, len(nodes))
	for i, n := range nodes {
		titles[i] = n.Title
	}
	assert.Equal(t, []string{"a", "a1", "a1x", "a2", "b", "b1"}, titles)
}
