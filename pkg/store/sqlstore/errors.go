package sqlstore

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

// PostgreSQL error codes that signal a lost race rather than a broken store.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// classify maps err onto the store error taxonomy. Errors that are already
// *store.Error pass through with op filled in.
func (s *Store) classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *store.Error
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		return se
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.NotFound(op, "record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgUniqueViolation:
			return &store.Error{Kind: store.KindConflict, Op: op, Message: "concurrent modification", Err: err}
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return &store.Error{Kind: store.KindConflict, Op: op, Message: "database is locked", Err: err}
	}

	s.log.Error().Err(err).Str("op", op).Msg("persistence failure")
	return store.Persistence(op, err)
}
