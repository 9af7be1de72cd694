package store

import (
	"context"
	"time"

	"github.com/paduck86/distillai/pkg/models"
)

// ChangeTracker exposes the change feed written alongside every mutation when
// change tracking is enabled. The replicator drains it in id order.
type ChangeTracker interface {
	// ListUnprocessedChanges returns pending and failed changes, oldest first.
	ListUnprocessedChanges(ctx context.Context, limit int) ([]*models.ChangeTracking, error)

	// ListUnprocessedChangesAfter pages through the same set, starting after
	// the change with id afterID.
	ListUnprocessedChangesAfter(ctx context.Context, afterID uint64, limit int) ([]*models.ChangeTracking, error)

	MarkChangeProcessed(ctx context.Context, changeID uint64) error

	// MarkChangeError records a failed attempt and bumps the retry count.
	MarkChangeError(ctx context.Context, changeID uint64, errorMessage string) error

	GetChangeStats(ctx context.Context) (*ChangeStats, error)

	// PurgeProcessedChanges deletes changes processed before the cutoff.
	PurgeProcessedChanges(ctx context.Context, before time.Time) (int64, error)
}

// ChangeStats provides statistics about the change tracking table
type ChangeStats struct {
	TotalChanges      int64      `json:"total_changes"`
	ProcessedChanges  int64      `json:"processed_changes"`
	PendingChanges    int64      `json:"pending_changes"`
	FailedChanges     int64      `json:"failed_changes"`
	OldestPendingTime *time.Time `json:"oldest_pending_time,omitempty"`
	LatestChangeTime  *time.Time `json:"latest_change_time,omitempty"`
}
