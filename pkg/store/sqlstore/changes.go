package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

// recordChange appends to the change feed within tx. It is a no-op unless
// change tracking is enabled.
//
// The payload is the entity as JSON. Keys listed in nullable are written as
// explicit nulls when the JSON encoding omitted them, so a replica merging
// the payload clears those fields instead of keeping stale values.
func (s *Store) recordChange(tx *gorm.DB, entityType, entityID string, operation models.ChangeOperation, entity any, nullable ...string) error {
	if !s.changeTracking {
		return nil
	}

	var payload models.JSONMap
	if entity != nil && operation != models.ChangeOperationDelete {
		jsonData, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := json.Unmarshal(jsonData, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal to JSONMap: %w", err)
		}
		for _, key := range nullable {
			if _, ok := payload[key]; !ok {
				payload[key] = nil
			}
		}
	}

	change := &models.ChangeTracking{
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		ChangedAt:  now(),
		Payload:    payload,
	}
	return tx.Create(change).Error
}

var nodeNullable = []string{"parent_id", "content", "synced_block_id"}

// ListUnprocessedChanges returns changes that haven't been synchronized yet
func (s *Store) ListUnprocessedChanges(ctx context.Context, limit int) ([]*models.ChangeTracking, error) {
	return s.ListUnprocessedChangesAfter(ctx, 0, limit)
}

// ListUnprocessedChangesAfter returns unsynchronized changes with an id
// greater than afterID, oldest first.
func (s *Store) ListUnprocessedChangesAfter(ctx context.Context, afterID uint64, limit int) ([]*models.ChangeTracking, error) {
	changes := []*models.ChangeTracking{}
	query := s.db.WithContext(ctx).
		Where("processed_at IS NULL OR error_message != ''").
		Where("id > ?", afterID).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&changes).Error; err != nil {
		return nil, s.classify("list unprocessed changes", err)
	}
	return changes, nil
}

// MarkChangeProcessed marks a change as successfully synchronized
func (s *Store) MarkChangeProcessed(ctx context.Context, changeID uint64) error {
	ts := now()
	err := s.db.WithContext(ctx).
		Model(&models.ChangeTracking{}).
		Where("id = ?", changeID).
		Updates(map[string]any{
			"processed_at":  &ts,
			"error_message": "",
		}).Error
	return s.classify("mark change processed", err)
}

// MarkChangeError marks a change as failed with an error message
func (s *Store) MarkChangeError(ctx context.Context, changeID uint64, errorMessage string) error {
	err := s.db.WithContext(ctx).
		Model(&models.ChangeTracking{}).
		Where("id = ?", changeID).
		Updates(map[string]any{
			"error_message": errorMessage,
			"retry_count":   gorm.Expr("retry_count + 1"),
		}).Error
	return s.classify("mark change error", err)
}

// GetChangeStats returns statistics about pending changes
func (s *Store) GetChangeStats(ctx context.Context) (*store.ChangeStats, error) {
	const op = "change stats"
	db := s.db.WithContext(ctx)
	stats := &store.ChangeStats{}

	counts := []struct {
		where  string
		target *int64
	}{
		{"", &stats.TotalChanges},
		{"processed_at IS NOT NULL AND error_message = ''", &stats.ProcessedChanges},
		{"processed_at IS NULL", &stats.PendingChanges},
		{"error_message != ''", &stats.FailedChanges},
	}
	for _, c := range counts {
		q := db.Model(&models.ChangeTracking{})
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.target).Error; err != nil {
			return nil, s.classify(op, err)
		}
	}

	var oldest models.ChangeTracking
	if err := db.Where("processed_at IS NULL").Order("id ASC").Limit(1).Find(&oldest).Error; err != nil {
		return nil, s.classify(op, err)
	}
	if oldest.ID != 0 {
		stats.OldestPendingTime = &oldest.ChangedAt
	}

	var latest models.ChangeTracking
	if err := db.Order("id DESC").Limit(1).Find(&latest).Error; err != nil {
		return nil, s.classify(op, err)
	}
	if latest.ID != 0 {
		stats.LatestChangeTime = &latest.ChangedAt
	}
	return stats, nil
}

// PurgeProcessedChanges removes old processed changes for cleanup
func (s *Store) PurgeProcessedChanges(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ? AND error_message = ''", before.UTC()).
		Delete(&models.ChangeTracking{})
	if res.Error != nil {
		return 0, s.classify("purge changes", res.Error)
	}
	return res.RowsAffected, nil
}
