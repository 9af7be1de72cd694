package surrealdb

import (
	"fmt"
	"time"

	"github.com/paduck86/distillai/pkg/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var tables = map[string]string{
	models.EntityNode:        "nodes",
	models.EntitySyncedBlock: "synced_blocks",
	models.EntityFolder:      "folders",
	models.EntityCategory:    "categories",
}

// references lists, per entity, the payload fields holding ids and the table
// they point into.
var references = map[string]map[string]string{
	models.EntityNode: {
		"owner_id":        "users",
		"parent_id":       "nodes",
		"synced_block_id": "synced_blocks",
	},
	models.EntitySyncedBlock: {"owner_id": "users"},
	models.EntityFolder: {
		"owner_id":  "users",
		"parent_id": "folders",
	},
	models.EntityCategory: {"owner_id": "users"},
}

var timestamps = []string{"created_at", "updated_at"}

func tableFor(entityType string) (string, error) {
	table, ok := tables[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type: %s", entityType)
	}
	return table, nil
}

func recordID(table string, id string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(table, id)
}

// Statements translates a change into SurrealQL statements and their
// variables. The record itself is always $rid.
func Statements(change *models.ChangeTracking) ([]string, map[string]any, error) {
	table, err := tableFor(change.EntityType)
	if err != nil {
		return nil, nil, err
	}
	rid := recordID(table, change.EntityID)
	vars := map[string]any{"rid": rid}

	switch change.Operation {
	case models.ChangeOperationDelete:
		return []string{
			"DELETE contains WHERE in = $rid OR out = $rid",
			"DELETE mirrors WHERE in = $rid OR out = $rid",
			"DELETE $rid RETURN NONE",
		}, vars, nil

	case models.ChangeOperationCreate, models.ChangeOperationUpdate:
		data, err := RecordData(change.EntityType, change.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("change %d: %w", change.ID, err)
		}
		vars["data"] = data
		stmts := []string{"UPSERT $rid MERGE $data RETURN NONE"}

		hierarchical := change.EntityType == models.EntityNode || change.EntityType == models.EntityFolder
		if parent, ok := data["parent_id"]; ok && hierarchical {
			stmts = append(stmts, "DELETE contains WHERE out = $rid")
			if parent != nil {
				vars["parent"] = parent
				stmts = append(stmts, "RELATE $parent->contains->$rid")
			}
		}
		if synced, ok := data["synced_block_id"]; ok && change.EntityType == models.EntityNode {
			stmts = append(stmts, "DELETE mirrors WHERE in = $rid")
			if synced != nil {
				vars["synced"] = synced
				stmts = append(stmts, "RELATE $rid->mirrors->$synced")
			}
		}
		return stmts, vars, nil

	default:
		return nil, nil, fmt.Errorf("unknown change operation: %s", change.Operation)
	}
}

// RecordData converts a change payload into the document merged into the
// record: id fields become record ids, timestamps become datetimes, and the
// primary key and read-only fields are dropped.
func RecordData(entityType string, payload models.JSONMap) (map[string]any, error) {
	refs := references[entityType]
	data := make(map[string]any, len(payload))
	for k, v := range payload {
		switch k {
		case "id", "synced_version":
			continue
		}
		data[k] = v
	}

	for field, table := range refs {
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString || s == "" {
			return nil, fmt.Errorf("field %s: expected an id string, got %T", field, v)
		}
		data[field] = recordID(table, s)
	}

	for _, field := range timestamps {
		v, ok := data[field]
		if !ok || v == nil {
			continue
		}
		switch ts := v.(type) {
		case time.Time:
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			data[field] = parsed
		default:
			return nil, fmt.Errorf("field %s: unexpected type %T", field, v)
		}
	}
	return data, nil
}
