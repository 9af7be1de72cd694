package server

import (
	"github.com/paduck86/distillai/pkg/models"
	"gorm.io/datatypes"
)

// Request and response bodies shared with pkg/client.

// MoveNodeRequest is the body of POST /api/nodes/{id}/move. A nil Position
// appends the node to its new siblings.
type MoveNodeRequest struct {
	ParentID *models.NodeID `json:"parent_id,omitempty"`
	Position *int           `json:"position,omitempty"`
}

type ReorderNodesRequest struct {
	ParentID *models.NodeID  `json:"parent_id,omitempty"`
	Ordered  []models.NodeID `json:"ordered"`
}

type LinkRequest struct {
	SyncedBlockID models.SyncedBlockID `json:"synced_block_id"`
}

// ContentRequest carries synced block content.
type ContentRequest struct {
	Content datatypes.JSON `json:"content"`
}

type MoveFolderRequest struct {
	ParentID *models.FolderID `json:"parent_id,omitempty"`
	Position *int             `json:"position,omitempty"`
}

type ReorderFoldersRequest struct {
	ParentID *models.FolderID  `json:"parent_id,omitempty"`
	Ordered  []models.FolderID `json:"ordered"`
}

type ReorderCategoriesRequest struct {
	Ordered []models.CategoryID `json:"ordered"`
}

// ImportRequest is the body of POST /api/import/markdown.
type ImportRequest struct {
	ParentID *models.NodeID `json:"parent_id,omitempty"`
	Name     string         `json:"name"`
	Markdown string         `json:"markdown"`
}

type ReadOnlyState struct {
	ReadOnly bool `json:"read_only"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Error kinds that do not come from the store.
const (
	KindReadOnly     = "read_only"
	KindUnauthorized = "unauthorized"
)
