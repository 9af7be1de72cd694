// Package surrealdb mirrors the relational store into SurrealDB as a graph.
//
// The relational database stays the source of truth. [Replica] consumes the
// change feed written by [github.com/paduck86/distillai/pkg/store/sqlstore]
// and applies each change as a document upsert plus graph edges:
//
//	nodes:<parent> ->contains-> nodes:<child>
//	folders:<parent> ->contains-> folders:<child>
//	nodes:<block> ->mirrors-> synced_blocks:<id>
//
// With those edges in place a reader can ask SurrealDB for every node that
// shows a synced block (SELECT <-mirrors<-nodes FROM $block) or walk a subtree
// without recursive SQL.
//
// Changes are idempotent. An UPSERT ... MERGE with the change payload leaves
// fields missing from the payload untouched, which is why position-only
// updates carry just position and updated_at, while full updates list
// cleared fields as explicit nulls.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/rs/zerolog"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

// Config describes the replica connection.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Replica applies change feed entries to SurrealDB.
type Replica struct {
	db  *surrealdb.DB
	log zerolog.Logger
}

// Connect opens a WebSocket connection with the surrealcbor codec, signs in
// when credentials are configured and selects the namespace and database.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*Replica, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	// surrealcbor encodes time.Time as a SurrealDB datetime
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return NewReplica(db, log), nil
}

// NewReplica wraps an already connected and authenticated database.
func NewReplica(db *surrealdb.DB, log zerolog.Logger) *Replica {
	return &Replica{
		db:  db,
		log: log.With().Str("component", "replica").Logger(),
	}
}

// Close closes the database connection
func (r *Replica) Close() error {
	return r.db.Close(context.Background())
}

// Apply writes one change to SurrealDB. All statements of a change run in a
// single transaction.
func (r *Replica) Apply(ctx context.Context, change *models.ChangeTracking) error {
	stmts, vars, err := Statements(change)
	if err != nil {
		return err
	}
	query := "BEGIN TRANSACTION;\n" + strings.Join(stmts, ";\n") + ";\nCOMMIT TRANSACTION;"
	results, err := surrealdb.Query[any](ctx, r.db, query, vars)
	if err != nil {
		return fmt.Errorf("failed to apply %s %s %s: %w", change.Operation, change.EntityType, change.EntityID, err)
	}
	if results != nil {
		for _, res := range *results {
			if res.Status != "OK" {
				return fmt.Errorf("failed to apply %s %s %s: %v", change.Operation, change.EntityType, change.EntityID, res.Result)
			}
		}
	}

	r.log.Debug().
		Uint64("change", change.ID).
		Str("entity", change.EntityType).
		Str("id", change.EntityID).
		Str("op", string(change.Operation)).
		Msg("change applied")
	return nil
}

// Children returns the ids of the records linked from parent by a contains
// edge, in position order.
func (r *Replica) Children(ctx context.Context, entityType, parentID string) ([]string, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	// table comes from the fixed entity mapping, never from input
	query := "SELECT id, position FROM $parent->contains->" + table + " ORDER BY position"
	vars := map[string]any{"parent": recordID(table, parentID)}

	type child struct {
		ID       surrealmodels.RecordID `json:"id"`
		Position int                    `json:"position"`
	}
	results, err := surrealdb.Query[[]child](ctx, r.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	var ids []string
	if results != nil && len(*results) > 0 {
		for _, c := range (*results)[0].Result {
			ids = append(ids, fmt.Sprint(c.ID.ID))
		}
	}
	return ids, nil
}

// Mirrors returns the ids of the nodes that reference a synced block.
func (r *Replica) Mirrors(ctx context.Context, syncedID models.SyncedBlockID) ([]string, error) {
	query := "SELECT VALUE in FROM mirrors WHERE out = $block"
	vars := map[string]any{"block": syncedID.RecordID()}
	results, err := surrealdb.Query[[]surrealmodels.RecordID](ctx, r.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirrors: %w", err)
	}
	var ids []string
	if results != nil && len(*results) > 0 {
		for _, rid := range (*results)[0].Result {
			ids = append(ids, fmt.Sprint(rid.ID))
		}
	}
	return ids, nil
}
