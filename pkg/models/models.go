package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NodeKind distinguishes the three levels of the knowledge tree.
type NodeKind string

const (
	NodeKindFolder NodeKind = "folder"
	NodeKindPage   NodeKind = "page"
	NodeKindBlock  NodeKind = "block"
)

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindFolder, NodeKindPage, NodeKindBlock:
		return true
	}
	return false
}

// Parentable reports whether nodes of kind k may have children.
// Blocks are leaves; synced content is shared through references, not nesting.
func (k NodeKind) Parentable() bool {
	return k == NodeKindFolder || k == NodeKindPage
}

// JSONMap is a free-form object used for change payloads. It is stored as
// JSONB on PostgreSQL and as JSON text on SQLite.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONMap", value)
	}
	return json.Unmarshal(bytes, j)
}

// Node is a folder, page or block in an owner's tree.
//
// Content holds the serialized document fragment for the node. The store
// treats it as an opaque blob. When SyncedBlockID is set the inline content is
// empty and reads return the synced block's content instead; SyncedVersion is
// then filled with the version that was read.
type Node struct {
	ID            NodeID         `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID       UserID         `gorm:"type:uuid;not null;index:idx_nodes_scope,priority:1" json:"owner_id"`
	ParentID      *NodeID        `gorm:"type:uuid;index:idx_nodes_scope,priority:2" json:"parent_id,omitempty"`
	Kind          NodeKind       `gorm:"not null" json:"kind"`
	Title         string         `json:"title"`
	Content       datatypes.JSON `json:"content,omitempty"`
	SyncedBlockID *SyncedBlockID `gorm:"type:uuid;index" json:"synced_block_id,omitempty"`
	Position      int            `gorm:"not null;default:0" json:"position"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	SyncedVersion int64 `gorm:"-" json:"synced_version,omitempty"`
}

// BeforeCreate hook to generate ID if not set
func (n *Node) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNodeID()
	}
	return nil
}

// IsSynced reports whether the node mirrors a synced block.
func (n *Node) IsSynced() bool {
	return n.SyncedBlockID != nil && !n.SyncedBlockID.IsZero()
}

// SyncedBlock is the single source of truth for content shown at every node
// that references it. Version increases by one on every content update.
type SyncedBlock struct {
	ID        SyncedBlockID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   UserID         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Content   datatypes.JSON `json:"content,omitempty"`
	Version   int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (s *SyncedBlock) BeforeCreate(tx *gorm.DB) error {
	if s.ID.IsZero() {
		s.ID = NewSyncedBlockID()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// Folder groups content outside the node tree, ordered within its parent folder.
type Folder struct {
	ID        FolderID  `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   UserID    `gorm:"type:uuid;not null;index:idx_folders_scope,priority:1" json:"owner_id"`
	ParentID  *FolderID `gorm:"type:uuid;index:idx_folders_scope,priority:2" json:"parent_id,omitempty"`
	Title     string    `gorm:"not null" json:"title"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID.IsZero() {
		f.ID = NewFolderID()
	}
	return nil
}

// Category labels content. A nil OwnerID marks a system category that every
// owner can read and nobody can modify through the API.
type Category struct {
	ID        CategoryID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID   *UserID    `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	Slug      string     `gorm:"not null;index" json:"slug"`
	Color     string     `json:"color,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	Position  int        `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID.IsZero() {
		c.ID = NewCategoryID()
	}
	return nil
}

// IsSystem reports whether the category is shared by all owners.
func (c *Category) IsSystem() bool {
	return c.OwnerID == nil || c.OwnerID.IsZero()
}

// EffectiveContent is the content a reader sees for a node after following
// its synced block reference, if any.
type EffectiveContent struct {
	NodeID        NodeID         `json:"node_id"`
	Content       datatypes.JSON `json:"content,omitempty"`
	SyncedBlockID *SyncedBlockID `json:"synced_block_id,omitempty"`
	Version       int64          `json:"version,omitempty"`
}
