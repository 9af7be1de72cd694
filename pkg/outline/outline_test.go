package outline_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/paduck86/distillai/internal/testenv"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/outline"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func block(parent *models.Node, content string) *models.Node {
	n := &models.Node{ID: models.NewNodeID(), ParentID: &parent.ID, Kind: models.NodeKindBlock}
	if content != "" {
		n.Content = datatypes.JSON(content)
	}
	return n
}

func TestRender(t *testing.T) {
	course := &models.Node{ID: models.NewNodeID(), Kind: models.NodeKindFolder, Title: "Course"}
	lecture := &models.Node{ID: models.NewNodeID(), ParentID: &course.ID, Kind: models.NodeKindPage, Title: "Lecture 1"}
	synced := block(lecture, `{"text":"Shared definition"}`)
	sid := models.NewSyncedBlockID()
	synced.SyncedBlockID = &sid
	untitled := &models.Node{ID: models.NewNodeID(), ParentID: &course.ID, Kind: models.NodeKindPage}
	missing := models.NewNodeID()
	stray := &models.Node{ID: models.NewNodeID(), ParentID: &missing, Kind: models.NodeKindBlock, Content: datatypes.JSON(`{"text":"stray"}`)}

	nodes := []*models.Node{
		course,
		lecture,
		block(lecture, `{"type":"paragraph","text":"Intro paragraph"}`),
		block(lecture, `{"type":"bulleted_list","text":"one\ntwo"}`),
		synced,
		block(lecture, ""),
		block(lecture, `{"text":"abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"}`),
		untitled,
		stray,
	}

	var buf bytes.Buffer
	require.NoError(t, outline.Render(&buf, nodes))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, t.Name(), buf.Bytes())
}

func TestRenderStoreTree(t *testing.T) {
	ctx := context.Background()
	s := testenv.NewStore(t)
	owner := models.NewUserID()

	folder, err := s.CreateNode(ctx, owner, store.NewNode{Kind: models.NodeKindFolder, Title: "Notes"})
	require.NoError(t, err)
	page, err := s.CreateNode(ctx, owner, store.NewNode{ParentID: &folder.ID, Kind: models.NodeKindPage, Title: "Week 1"})
	require.NoError(t, err)
	b, err := s.CreateNode(ctx, owner, store.NewNode{ParentID: &page.ID, Kind: models.NodeKindBlock, Content: datatypes.JSON(`{"text":"before"}`)})
	require.NoError(t, err)
	sb, err := s.ConvertToSynced(ctx, owner, b.ID)
	require.NoError(t, err)
	_, err = s.UpdateSyncedBlock(ctx, owner, sb.ID, datatypes.JSON(`{"text":"after"}`))
	require.NoError(t, err)

	nodes, err := s.ListTree(ctx, owner)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, outline.Render(&buf, nodes))
	assert.Equal(t, "+ Notes\n  # Week 1\n    - after [synced]\n", buf.String())
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outline.Render(&buf, nil))
	assert.Empty(t, buf.String())
}
