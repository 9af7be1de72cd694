package surrealdb

import (
	"testing"
	"time"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestStatementsForNodeUpdate(t *testing.T) {
	owner := models.NewUserID()
	node := models.NewNodeID()
	parent := models.NewNodeID()
	synced := models.NewSyncedBlockID()

	change := &models.ChangeTracking{
		ID:         7,
		EntityType: models.EntityNode,
		EntityID:   node.String(),
		Operation:  models.ChangeOperationUpdate,
		Payload: models.JSONMap{
			"id":              node.String(),
			"owner_id":        owner.String(),
			"parent_id":       parent.String(),
			"synced_block_id": synced.String(),
			"content":         nil,
			"position":        float64(2),
			"updated_at":      "2024-05-01T10:00:00.123456789Z",
		},
	}

	stmts, vars, err := Statements(change)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"UPSERT $rid MERGE $data RETURN NONE",
		"DELETE contains WHERE out = $rid",
		"RELATE $parent->contains->$rid",
		"DELETE mirrors WHERE in = $rid",
		"RELATE $rid->mirrors->$synced",
	}, stmts)

	assert.Equal(t, surrealmodels.NewRecordID("nodes", node.String()), vars["rid"])
	assert.Equal(t, surrealmodels.NewRecordID("nodes", parent.String()), vars["parent"])
	assert.Equal(t, surrealmodels.NewRecordID("synced_blocks", synced.String()), vars["synced"])

	data := vars["data"].(map[string]any)
	assert.NotContains(t, data, "id")
	assert.Equal(t, surrealmodels.NewRecordID("users", owner.String()), data["owner_id"])
	require.Contains(t, data, "content")
	assert.Nil(t, data["content"])
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC), data["updated_at"])
}

func TestStatementsClearEdges(t *testing.T) {
	node := models.NewNodeID()
	change := &models.ChangeTracking{
		EntityType: models.EntityNode,
		EntityID:   node.String(),
		Operation:  models.ChangeOperationUpdate,
		Payload:    models.JSONMap{"parent_id": nil, "synced_block_id": nil},
	}

	stmts, vars, err := Statements(change)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"UPSERT $rid MERGE $data RETURN NONE",
		"DELETE contains WHERE out = $rid",
		"DELETE mirrors WHERE in = $rid",
	}, stmts)
	assert.NotContains(t, vars, "parent")
	assert.NotContains(t, vars, "synced")
}

func TestStatementsForPositionOnlyUpdate(t *testing.T) {
	folder := models.NewFolderID()
	change := &models.ChangeTracking{
		EntityType: models.EntityFolder,
		EntityID:   folder.String(),
		Operation:  models.ChangeOperationUpdate,
		Payload:    models.JSONMap{"position": float64(0), "updated_at": "2024-05-01T10:00:00Z"},
	}

	stmts, vars, err := Statements(change)
	require.NoError(t, err)
	assert.Equal(t, []string{"UPSERT $rid MERGE $data RETURN NONE"}, stmts)
	assert.Equal(t, surrealmodels.NewRecordID("folders", folder.String()), vars["rid"])
	assert.Len(t, vars["data"], 2)
}

func TestStatementsForDelete(t *testing.T) {
	sb := models.NewSyncedBlockID()
	stmts, vars, err := Statements(&models.ChangeTracking{
		EntityType: models.EntitySyncedBlock,
		EntityID:   sb.String(),
		Operation:  models.ChangeOperationDelete,
	})
	require.NoError(t, err)
	assert.Len(t, stmts, 3)
	assert.Equal(t, "DELETE $rid RETURN NONE", stmts[2])
	assert.Equal(t, map[string]any{"rid": surrealmodels.NewRecordID("synced_blocks", sb.String())}, vars)
}

func TestStatementsRejectUnknownInput(t *testing.T) {
	_, _, err := Statements(&models.ChangeTracking{EntityType: "workspace", Operation: models.ChangeOperationCreate})
	require.Error(t, err)

	_, _, err = Statements(&models.ChangeTracking{EntityType: models.EntityNode, Operation: "TRUNCATE"})
	require.Error(t, err)

	_, _, err = Statements(&models.ChangeTracking{
		EntityType: models.EntityNode,
		Operation:  models.ChangeOperationCreate,
		Payload:    models.JSONMap{"parent_id": float64(3)},
	})
	require.Error(t, err)
}

func TestRecordDataKeepsSystemCategoryOwnerNull(t *testing.T) {
	data, err := RecordData(models.EntityCategory, models.JSONMap{"owner_id": nil, "slug": "lecture"})
	require.NoError(t, err)
	require.Contains(t, data, "owner_id")
	assert.Nil(t, data["owner_id"])
	assert.Equal(t, "lecture", data["slug"])
}
