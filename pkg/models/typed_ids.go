package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// recordIDTag is the CBOR tag SurrealDB uses for record identifiers.
const recordIDTag = 8

// UserID identifies an authenticated owner. The store never creates users;
// ids arrive from the auth collaborator already verified.
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "users",
		ID:    u.uuid.String(),
	}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &u.uuid)
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("users", u.uuid)
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "users", &u.uuid)
}

func (u UserID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return u.uuid.String(), nil
}

func (u *UserID) Scan(value any) error {
	return scanUUID(value, &u.uuid)
}

func (UserID) GormDataType() string { return "uuid" }

// NodeID is a typed ID for nodes
type NodeID struct {
	uuid uuid.UUID
}

func NewNodeID() NodeID {
	return NodeID{uuid: uuid.New()}
}

func NewNodeIDFromUUID(id uuid.UUID) NodeID {
	return NodeID{uuid: id}
}

func ParseNodeID(s string) (NodeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("invalid node ID: %w", err)
	}
	return NodeID{uuid: id}, nil
}

func (n NodeID) UUID() uuid.UUID { return n.uuid }
func (n NodeID) String() string  { return n.uuid.String() }
func (n NodeID) IsZero() bool    { return n.uuid == uuid.Nil }

func (n NodeID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "nodes",
		ID:    n.uuid.String(),
	}
}

func (n NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.uuid.String())
}

func (n *NodeID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &n.uuid)
}

func (n NodeID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("nodes", n.uuid)
}

func (n *NodeID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "nodes", &n.uuid)
}

func (n NodeID) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	return n.uuid.String(), nil
}

func (n *NodeID) Scan(value any) error {
	return scanUUID(value, &n.uuid)
}

func (NodeID) GormDataType() string { return "uuid" }

// SyncedBlockID is a typed ID for synced blocks
type SyncedBlockID struct {
	uuid uuid.UUID
}

func NewSyncedBlockID() SyncedBlockID {
	return SyncedBlockID{uuid: uuid.New()}
}

func NewSyncedBlockIDFromUUID(id uuid.UUID) SyncedBlockID {
	return SyncedBlockID{uuid: id}
}

func ParseSyncedBlockID(s string) (SyncedBlockID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SyncedBlockID{}, fmt.Errorf("invalid synced block ID: %w", err)
	}
	return SyncedBlockID{uuid: id}, nil
}

func (s SyncedBlockID) UUID() uuid.UUID { return s.uuid }
func (s SyncedBlockID) String() string  { return s.uuid.String() }
func (s SyncedBlockID) IsZero() bool    { return s.uuid == uuid.Nil }

func (s SyncedBlockID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "synced_blocks",
		ID:    s.uuid.String(),
	}
}

func (s SyncedBlockID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.uuid.String())
}

func (s *SyncedBlockID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &s.uuid)
}

func (s SyncedBlockID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("synced_blocks", s.uuid)
}

func (s *SyncedBlockID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "synced_blocks", &s.uuid)
}

func (s SyncedBlockID) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, nil
	}
	return s.uuid.String(), nil
}

func (s *SyncedBlockID) Scan(value any) error {
	return scanUUID(value, &s.uuid)
}

func (SyncedBlockID) GormDataType() string { return "uuid" }

// FolderID is a typed ID for folders
type FolderID struct {
	uuid uuid.UUID
}

func NewFolderID() FolderID {
	return FolderID{uuid: uuid.New()}
}

func NewFolderIDFromUUID(id uuid.UUID) FolderID {
	return FolderID{uuid: id}
}

func ParseFolderID(s string) (FolderID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return FolderID{}, fmt.Errorf("invalid folder ID: %w", err)
	}
	return FolderID{uuid: id}, nil
}

func (f FolderID) UUID() uuid.UUID { return f.uuid }
func (f FolderID) String() string  { return f.uuid.String() }
func (f FolderID) IsZero() bool    { return f.uuid == uuid.Nil }

func (f FolderID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "folders",
		ID:    f.uuid.String(),
	}
}

func (f FolderID) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.uuid.String())
}

func (f *FolderID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &f.uuid)
}

func (f FolderID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("folders", f.uuid)
}

func (f *FolderID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "folders", &f.uuid)
}

func (f FolderID) Value() (driver.Value, error) {
	if f.IsZero() {
		return nil, nil
	}
	return f.uuid.String(), nil
}

func (f *FolderID) Scan(value any) error {
	return scanUUID(value, &f.uuid)
}

func (FolderID) GormDataType() string { return "uuid" }

// CategoryID is a typed ID for categories
type CategoryID struct {
	uuid uuid.UUID
}

func NewCategoryID() CategoryID {
	return CategoryID{uuid: uuid.New()}
}

func NewCategoryIDFromUUID(id uuid.UUID) CategoryID {
	return CategoryID{uuid: id}
}

func ParseCategoryID(s string) (CategoryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CategoryID{}, fmt.Errorf("invalid category ID: %w", err)
	}
	return CategoryID{uuid: id}, nil
}

func (c CategoryID) UUID() uuid.UUID { return c.uuid }
func (c CategoryID) String() string  { return c.uuid.String() }
func (c CategoryID) IsZero() bool    { return c.uuid == uuid.Nil }

func (c CategoryID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "categories",
		ID:    c.uuid.String(),
	}
}

func (c CategoryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.uuid.String())
}

func (c *CategoryID) UnmarshalJSON(data []byte) error {
	return unmarshalJSONID(data, &c.uuid)
}

func (c CategoryID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID("categories", c.uuid)
}

func (c *CategoryID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "categories", &c.uuid)
}

func (c CategoryID) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	return c.uuid.String(), nil
}

func (c *CategoryID) Scan(value any) error {
	return scanUUID(value, &c.uuid)
}

func (CategoryID) GormDataType() string { return "uuid" }

func unmarshalJSONID(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*target = uuid.Nil
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}

	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}

func marshalCBORID(table string, id uuid.UUID) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{table, id.String()},
	})
}

// unmarshalCBORID decodes a SurrealDB record id, encoded as tag 8 wrapping
// [table, id], and checks that it belongs to expectedTable.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// major type 6 is a tag
	if majorType := data[0] >> 5; majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != recordIDTag {
		return fmt.Errorf("expected RecordID tag (%d), got %d", recordIDTag, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}
	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}
	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}
	*target = parsed
	return nil
}
