// Package store defines the persistence surface of the knowledge tree: nodes,
// synced blocks, folders and categories, all scoped to an already
// authenticated owner.
//
// # Ownership
//
// Every operation takes the caller's [models.UserID]. An entity owned by
// someone else is reported exactly like a missing one, with an [Error] of
// kind [KindNotFound], so ids cannot be probed across owners.
//
// # Ordering
//
// Siblings (nodes under the same parent, folders under the same parent
// folder, an owner's categories) always carry the dense positions 0..n-1.
// Every structural change rewrites the positions of the affected scope inside
// the same transaction.
//
// # Synced blocks
//
// A block node may point at one [models.SyncedBlock]. Reads of such a node
// return the synced block's current content; the node's own content column
// stays empty until it is unlinked. Synced content changes only through
// [Store.UpdateSyncedBlock].
//
// Implementations:
//   - [github.com/paduck86/distillai/pkg/store/sqlstore.Store]: GORM on PostgreSQL or SQLite
//   - [ReadOnlyStore]: rejects writes while maintenance is in progress
package store

import (
	"context"

	"github.com/paduck86/distillai/pkg/models"
	"gorm.io/datatypes"
)

// NewNode describes a node to create. A nil ParentID creates a root node.
type NewNode struct {
	ParentID *models.NodeID  `json:"parent_id,omitempty"`
	Kind     models.NodeKind `json:"kind"`
	Title    string          `json:"title"`
	Content  datatypes.JSON  `json:"content,omitempty"`
}

// NodeUpdate carries the fields to change. Nil fields are left alone; a JSON
// null decodes to nil.
type NodeUpdate struct {
	Title   *string         `json:"title,omitempty"`
	Content *datatypes.JSON `json:"content,omitempty"`
}

type NewFolder struct {
	ParentID *models.FolderID `json:"parent_id,omitempty"`
	Title    string           `json:"title"`
	Color    string           `json:"color,omitempty"`
	Icon     string           `json:"icon,omitempty"`
}

type FolderUpdate struct {
	Title *string `json:"title,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// NewCategory describes a category. An empty Slug is derived from Name.
type NewCategory struct {
	Name  string `json:"name" yaml:"name"`
	Slug  string `json:"slug,omitempty" yaml:"slug,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

type CategoryUpdate struct {
	Name  *string `json:"name,omitempty"`
	Slug  *string `json:"slug,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// AppendPosition asks Move operations to place the entity after its last
// sibling. Any position past the end behaves the same way.
const AppendPosition = -1

// Store is the complete persistence interface.
//
// All methods return *Error values on failure; use errors.Is with
// [ErrNotFound], [ErrValidation], [ErrConflict] or [ErrPersistence] to branch.
// Multi-row operations are atomic: on error nothing they touched is changed.
// List methods return empty slices, never nil.
type Store interface {
	// Tree

	// CreateNode appends a node under ParentID. The parent must belong to
	// owner and be a folder or a page.
	CreateNode(ctx context.Context, owner models.UserID, in NewNode) (*models.Node, error)
	GetNode(ctx context.Context, owner models.UserID, id models.NodeID) (*models.Node, error)
	// ListChildren returns the children of parent (roots when nil) by position.
	ListChildren(ctx context.Context, owner models.UserID, parent *models.NodeID) ([]*models.Node, error)
	// ListTree returns every node of owner in depth-first, position order.
	ListTree(ctx context.Context, owner models.UserID) ([]*models.Node, error)
	// UpdateNode edits title or inline content. Editing the content of a
	// synced node fails validation; update its synced block instead.
	UpdateNode(ctx context.Context, owner models.UserID, id models.NodeID, in NodeUpdate) (*models.Node, error)
	// MoveNode reparents a node and places it at position among its new
	// siblings. Moving a node under itself or one of its descendants fails
	// validation.
	MoveNode(ctx context.Context, owner models.UserID, id models.NodeID, newParent *models.NodeID, position int) (*models.Node, error)
	// ReorderNodes assigns positions following ordered, which must list
	// exactly the current children of parent.
	ReorderNodes(ctx context.Context, owner models.UserID, parent *models.NodeID, ordered []models.NodeID) error
	// DeleteNode removes the node and all its descendants. Synced blocks they
	// referenced are kept.
	DeleteNode(ctx context.Context, owner models.UserID, id models.NodeID) error
	// ResolveContent returns the content a reader of the node sees.
	ResolveContent(ctx context.Context, owner models.UserID, id models.NodeID) (*models.EffectiveContent, error)

	// Synced blocks

	CreateSyncedBlock(ctx context.Context, owner models.UserID, content datatypes.JSON) (*models.SyncedBlock, error)
	GetSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) (*models.SyncedBlock, error)
	ListSyncedBlocks(ctx context.Context, owner models.UserID) ([]*models.SyncedBlock, error)
	// UpdateSyncedBlock replaces the content, last writer wins, and bumps
	// the version. Every referencing node reads the new content afterwards.
	UpdateSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID, content datatypes.JSON) (*models.SyncedBlock, error)
	// DeleteSyncedBlock fails with a conflict while any node references it.
	DeleteSyncedBlock(ctx context.Context, owner models.UserID, id models.SyncedBlockID) error
	// ConvertToSynced moves a block's inline content into a new synced block
	// and points the block at it.
	ConvertToSynced(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.SyncedBlock, error)
	LinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID, syncedID models.SyncedBlockID) (*models.Node, error)
	// UnlinkSyncedBlock clears the reference. The node is left with empty
	// inline content and the synced block is untouched.
	UnlinkSyncedBlock(ctx context.Context, owner models.UserID, nodeID models.NodeID) (*models.Node, error)
	GetReferences(ctx context.Context, owner models.UserID, syncedID models.SyncedBlockID) ([]*models.Node, error)

	// Folders

	CreateFolder(ctx context.Context, owner models.UserID, in NewFolder) (*models.Folder, error)
	GetFolder(ctx context.Context, owner models.UserID, id models.FolderID) (*models.Folder, error)
	ListFolders(ctx context.Context, owner models.UserID, parent *models.FolderID) ([]*models.Folder, error)
	UpdateFolder(ctx context.Context, owner models.UserID, id models.FolderID, in FolderUpdate) (*models.Folder, error)
	MoveFolder(ctx context.Context, owner models.UserID, id models.FolderID, newParent *models.FolderID, position int) (*models.Folder, error)
	ReorderFolders(ctx context.Context, owner models.UserID, parent *models.FolderID, ordered []models.FolderID) error
	DeleteFolder(ctx context.Context, owner models.UserID, id models.FolderID) error

	// Categories

	CreateCategory(ctx context.Context, owner models.UserID, in NewCategory) (*models.Category, error)
	// GetCategory returns one of owner's categories or a system category.
	GetCategory(ctx context.Context, owner models.UserID, id models.CategoryID) (*models.Category, error)
	// ListCategories returns system categories followed by owner's own.
	ListCategories(ctx context.Context, owner models.UserID) ([]*models.Category, error)
	UpdateCategory(ctx context.Context, owner models.UserID, id models.CategoryID, in CategoryUpdate) (*models.Category, error)
	ReorderCategories(ctx context.Context, owner models.UserID, ordered []models.CategoryID) error
	DeleteCategory(ctx context.Context, owner models.UserID, id models.CategoryID) error
	// SeedSystemCategories inserts the given system categories that do not
	// exist yet, matched by slug.
	SeedSystemCategories(ctx context.Context, categories []NewCategory) error

	// Lifecycle

	Migrate(ctx context.Context) error
	Close() error
}
