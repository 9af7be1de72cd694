// Package sqlstore implements [store.Store] on a relational database through
// GORM. PostgreSQL is the production target; SQLite serves local use and
// tests.
//
// Every multi-row operation runs in one transaction. Sibling sets are
// serialised per scope: on PostgreSQL with a transaction-scoped advisory lock
// keyed by the scope, on SQLite by the single writer connection. Position
// rewrites are compare-and-swap updates on the position read earlier in the
// transaction, so a write that races a sibling change fails with a conflict
// instead of corrupting the order.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	// ChangeTracking records every mutation in the change_tracking table.
	ChangeTracking bool
	Logger         zerolog.Logger
}

// Store implements store.Store and store.ChangeTracker with GORM.
type Store struct {
	db             *gorm.DB
	dialect        string
	log            zerolog.Logger
	changeTracking bool
}

var (
	_ store.Store         = (*Store)(nil)
	_ store.ChangeTracker = (*Store)(nil)
)

// Open connects to the database described by opts.
func Open(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite, "":
		conn, err := openSQLite(opts.DSN)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.New(sqlite.Config{Conn: conn})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(opts.Logger),
		NowFunc: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Driver == DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	return New(db, opts), nil
}

// New wraps an open GORM handle. Only ChangeTracking and Logger are read
// from opts.
func New(db *gorm.DB, opts Options) *Store {
	return &Store{
		db:             db,
		dialect:        db.Dialector.Name(),
		log:            opts.Logger.With().Str("component", "sqlstore").Logger(),
		changeTracking: opts.ChangeTracking,
	}
}

// DB exposes the underlying handle for maintenance tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or extends the schema with GORM's AutoMigrate. It never
// drops columns or data.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Node{},
		&models.SyncedBlock{},
		&models.Folder{},
		&models.Category{},
		&models.ChangeTracking{},
	)
	if err != nil {
		return s.classify("migrate", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func now() time.Time {
	return time.Now().UTC()
}

func (s *Store) isPostgres() bool {
	return s.dialect == DriverPostgres
}

// transaction runs fn in a database transaction and maps its error onto the
// store taxonomy.
func (s *Store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	return s.classify(op, s.db.WithContext(ctx).Transaction(fn))
}

// forUpdate adds a row lock where the dialect supports one. SQLite has a
// single writer, so the plain read is already serialised.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.isPostgres() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
