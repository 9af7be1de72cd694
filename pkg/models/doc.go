// Package models defines the entities of the knowledge tree and the typed
// identifiers used to reference them.
//
// Every identifier is a distinct type wrapping a UUID so a [NodeID] cannot be
// passed where a [SyncedBlockID] is expected. The identifiers implement
// driver.Valuer and sql.Scanner for GORM, JSON marshaling for the HTTP API and
// CBOR marshaling as SurrealDB record ids (tag 8, [table, id]) for the read
// replica.
//
// Content columns use [gorm.io/datatypes.JSON]: JSONB on PostgreSQL, JSON text
// on SQLite. The store never looks inside them.
package models
