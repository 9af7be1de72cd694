package models

import (
	"time"
)

// ChangeOperation represents the type of database change
type ChangeOperation string

const (
	ChangeOperationCreate ChangeOperation = "CREATE"
	ChangeOperationUpdate ChangeOperation = "UPDATE"
	ChangeOperationDelete ChangeOperation = "DELETE"
)

// Entity types recorded in the change feed.
const (
	EntityNode        = "node"
	EntitySyncedBlock = "synced_block"
	EntityFolder      = "folder"
	EntityCategory    = "category"
)

// ChangeTracking is one row of the change feed. Rows are written in the same
// transaction as the mutation they describe, so a committed change is always
// visible to the replicator and a rolled back one never is.
type ChangeTracking struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType   string          `gorm:"not null;index:idx_entity_timestamp" json:"entity_type"`
	EntityID     string          `gorm:"not null;index:idx_entity_timestamp" json:"entity_id"`
	Operation    ChangeOperation `gorm:"not null" json:"operation"`
	ChangedAt    time.Time       `gorm:"not null;index:idx_entity_timestamp" json:"changed_at"`
	ProcessedAt  *time.Time      `gorm:"index" json:"processed_at,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int             `gorm:"default:0" json:"retry_count"`
	// Payload is the entity as of the change for CREATE and UPDATE.
	Payload JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
}

// TableName returns the table name for the change tracking model
func (ChangeTracking) TableName() string {
	return "change_tracking"
}

// IsProcessed returns true if the change has been successfully processed
func (c *ChangeTracking) IsProcessed() bool {
	return c.ProcessedAt != nil && c.ErrorMessage == ""
}

// MarkProcessed marks the change as successfully processed
func (c *ChangeTracking) MarkProcessed(processedTime time.Time) {
	c.ProcessedAt = &processedTime
	c.ErrorMessage = ""
}

// MarkError marks the change as failed with an error message
func (c *ChangeTracking) MarkError(errorMsg string) {
	c.ErrorMessage = errorMsg
	c.RetryCount++
}
