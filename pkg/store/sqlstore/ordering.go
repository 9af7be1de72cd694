package sqlstore

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"gorm.io/gorm"
)

// scope is one sibling set: the rows of table sharing an owner and, for
// hierarchical tables, a parent.
type scope struct {
	table  string
	entity string
	owner  *models.UserID
	column string
	parent any
}

func nodeScope(owner models.UserID, parent *models.NodeID) scope {
	sc := scope{table: "nodes", entity: models.EntityNode, owner: &owner, column: "parent_id"}
	if parent != nil {
		sc.parent = *parent
	}
	return sc
}

func folderScope(owner models.UserID, parent *models.FolderID) scope {
	sc := scope{table: "folders", entity: models.EntityFolder, owner: &owner, column: "parent_id"}
	if parent != nil {
		sc.parent = *parent
	}
	return sc
}

// categoryScope with a nil owner is the scope of system categories.
func categoryScope(owner *models.UserID) scope {
	return scope{table: "categories", entity: models.EntityCategory, owner: owner}
}

func (sc scope) key() string {
	owner := "system"
	if sc.owner != nil {
		owner = sc.owner.String()
	}
	parent := "root"
	if sc.parent != nil {
		parent = fmt.Sprint(sc.parent)
	}
	return sc.table + "|" + owner + "|" + parent
}

func (sc scope) query(tx *gorm.DB) *gorm.DB {
	q := tx.Table(sc.table)
	if sc.owner == nil {
		q = q.Where("owner_id IS NULL")
	} else {
		q = q.Where("owner_id = ?", *sc.owner)
	}
	if sc.column != "" {
		if sc.parent == nil {
			q = q.Where(sc.column + " IS NULL")
		} else {
			q = q.Where(sc.column+" = ?", sc.parent)
		}
	}
	return q
}

// lockScopes serialises structural changes per sibling set. Keys are taken
// in sorted order so two transactions locking the same pair cannot deadlock.
func (s *Store) lockScopes(tx *gorm.DB, scopes ...scope) error {
	if !s.isPostgres() {
		return nil
	}
	keys := make([]string, 0, len(scopes))
	seen := make(map[string]bool, len(scopes))
	for _, sc := range scopes {
		k := sc.key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", lockKey(k)).Error; err != nil {
			return err
		}
	}
	return nil
}

func lockKey(k string) int64 {
	h := fnv.New64a()
	h.Write([]byte(k))
	return int64(h.Sum64())
}

// slot is a sibling's id and position as read inside the transaction.
type slot struct {
	ID       string
	Position int
}

func (s *Store) siblings(tx *gorm.DB, sc scope) ([]slot, error) {
	var slots []slot
	err := sc.query(tx).Select("id, position").Order("position ASC, id ASC").Scan(&slots).Error
	return slots, err
}

func (s *Store) nextPosition(tx *gorm.DB, sc scope) (int, error) {
	var maxPos int
	err := sc.query(tx).Select("COALESCE(MAX(position), -1)").Scan(&maxPos).Error
	return maxPos + 1, err
}

func ids(slots []slot) []string {
	out := make([]string, len(slots))
	for i, sl := range slots {
		out[i] = sl.ID
	}
	return out
}

func positions(slots []slot) map[string]int {
	out := make(map[string]int, len(slots))
	for _, sl := range slots {
		out[sl.ID] = sl.Position
	}
	return out
}

func without(order []string, id string) []string {
	out := make([]string, 0, len(order))
	for _, v := range order {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertAt places id at index, clamped to [0, len(order)]. AppendPosition
// appends.
func insertAt(order []string, id string, index int) ([]string, int) {
	if index < 0 || index > len(order) {
		index = len(order)
	}
	out := make([]string, 0, len(order)+1)
	out = append(out, order[:index]...)
	out = append(out, id)
	out = append(out, order[index:]...)
	return out, index
}

// sameSet reports whether requested is a permutation of current.
func sameSet(current []string, requested []string) error {
	if len(requested) != len(current) {
		return store.Validation("", "expected %d ids, got %d", len(current), len(requested))
	}
	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[id] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if seen[id] {
			return store.Validation("", "duplicate id %s", id)
		}
		if !want[id] {
			return store.Validation("", "id %s is not a child of this parent", id)
		}
		seen[id] = true
	}
	return nil
}

// writePositions assigns position i to order[i]. Rows whose position already
// matches are skipped. Each update is conditioned on the position read
// earlier, so a concurrent change to the sibling set surfaces as a conflict.
func (s *Store) writePositions(tx *gorm.DB, sc scope, order []string, current map[string]int) error {
	ts := now()
	for i, id := range order {
		old, known := current[id]
		if known && old == i {
			continue
		}
		q := tx.Table(sc.table).Where("id = ?", id)
		if known {
			q = q.Where("position = ?", old)
		}
		res := q.Updates(map[string]any{"position": i, "updated_at": ts})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return store.Conflict("", "sibling order changed concurrently")
		}
		if err := s.recordChange(tx, sc.entity, id, models.ChangeOperationUpdate, models.JSONMap{"position": i, "updated_at": ts}); err != nil {
			return err
		}
	}
	return nil
}

// compact renumbers a scope to 0..n-1 after a removal.
func (s *Store) compact(tx *gorm.DB, sc scope) error {
	slots, err := s.siblings(tx, sc)
	if err != nil {
		return err
	}
	return s.writePositions(tx, sc, ids(slots), positions(slots))
}
