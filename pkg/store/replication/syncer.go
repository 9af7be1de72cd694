// Package replication drains the change feed of the primary store into a
// replica.
//
// Changes are applied strictly in feed order. When one fails it is marked
// with the error and the pass stops, so a later change to the same entity can
// never overtake it; the next pass retries from there. A change that keeps
// failing past MaxRetries is skipped and stays in the feed for inspection.
package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/rs/zerolog"
)

// Applier writes one change to a replica.
type Applier interface {
	Apply(ctx context.Context, change *models.ChangeTracking) error
}

// Options tunes a Syncer.
type Options struct {
	// BatchSize is the number of changes read per query.
	BatchSize int
	// MaxRetries is how often a change may fail before it is skipped.
	MaxRetries int
	Logger     zerolog.Logger
}

const (
	DefaultBatchSize  = 500
	DefaultMaxRetries = 5
)

// Syncer copies changes from a ChangeTracker to an Applier.
type Syncer struct {
	source     store.ChangeTracker
	target     Applier
	batchSize  int
	maxRetries int
	log        zerolog.Logger
}

// Result summarises one pass.
type Result struct {
	Applied int
	Failed  int
	Skipped int
}

func NewSyncer(source store.ChangeTracker, target Applier, opts Options) *Syncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	return &Syncer{
		source:     source,
		target:     target,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		log:        opts.Logger.With().Str("component", "syncer").Logger(),
	}
}

// SyncOnce applies pending changes until the feed is drained or a change
// fails. Errors reading or marking the feed are returned; a failing change
// is recorded on the change and reported in Result.Failed.
func (s *Syncer) SyncOnce(ctx context.Context) (Result, error) {
	var res Result
	// skipped changes stay in the feed, so paging continues after the last id seen
	var cursor uint64
	for {
		changes, err := s.source.ListUnprocessedChangesAfter(ctx, cursor, s.batchSize)
		if err != nil {
			return res, fmt.Errorf("failed to list changes: %w", err)
		}

		for _, change := range changes {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			cursor = change.ID
			if change.RetryCount >= s.maxRetries {
				res.Skipped++
				continue
			}

			if err := s.target.Apply(ctx, change); err != nil {
				res.Failed++
				s.log.Warn().Err(err).
					Uint64("change", change.ID).
					Str("entity", change.EntityType).
					Str("id", change.EntityID).
					Int("retry", change.RetryCount+1).
					Msg("failed to apply change")
				if markErr := s.source.MarkChangeError(ctx, change.ID, err.Error()); markErr != nil {
					return res, fmt.Errorf("failed to mark change %d: %w", change.ID, markErr)
				}
				return res, nil
			}

			if err := s.source.MarkChangeProcessed(ctx, change.ID); err != nil {
				return res, fmt.Errorf("failed to mark change %d: %w", change.ID, err)
			}
			res.Applied++
		}

		if len(changes) < s.batchSize {
			return res, nil
		}
	}
}

// Run calls SyncOnce immediately and then every interval until ctx is done.
// Pass errors are logged and do not stop the loop.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := s.SyncOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			s.log.Error().Err(err).Msg("sync pass failed")
		case res.Applied > 0 || res.Failed > 0:
			s.log.Info().Int("applied", res.Applied).Int("failed", res.Failed).Int("skipped", res.Skipped).Msg("sync pass")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
