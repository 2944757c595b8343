package reconmem

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TTL expires the row Key of the table Family at Value.
type TTL struct {
	ID     int64  `db:"id"`
	Family string `db:"family"`
	Key    int64  `db:"key"`
	Value  Time   `db:"value"`
}

func (t TTL) Ident() int64 { return t.ID }

const ttlTable = "ttls"

var TTLs = Table[TTL]{Name: ttlTable, Keyless: true}

func (s *Store) expiry(ttl int64) Time {
	return At(s.now().Add(time.Duration(ttl) * time.Second))
}

// createTTL records a fresh expiry for a row.
func (s *Store) createTTL(q Queryer, table string, key, ttl int64) error {
	_, err := TTLs.insert(q, TTL{Family: table, Key: key, Value: s.expiry(ttl)})
	return err
}

// bumpTTL moves an existing expiry forward. Rows without a ttl never gain one here.
func (s *Store) bumpTTL(q Queryer, table string, key, ttl int64) error {
	existing, err := TTLs.getBy(q, "family = ? AND key = ?", table, key)
	if err != nil || existing == nil {
		return err
	}

	next := s.expiry(ttl)
	if !next.After(existing.Value.Time) {
		return nil
	}
	_, err = TTLs.exec(q, "bump", "UPDATE ttls SET value = ? WHERE id = ?", next, existing.ID)
	return err
}

// CreateTTL sets the expiry of a row ttl seconds from now.
func (s *Store) CreateTTL(f Family, key, ttl int64) error {
	t, err := lookup(f)
	if err != nil {
		return err
	}
	return s.createTTL(s.db, t.tableName(), key, ttl)
}

// BumpTTL moves the expiry of a row to ttl seconds from now, if that is later.
func (s *Store) BumpTTL(f Family, key, ttl int64) error {
	t, err := lookup(f)
	if err != nil {
		return err
	}
	return s.tx(func(q Queryer) error {
		return s.bumpTTL(q, t.tableName(), key, ttl)
	})
}

// TTLOf returns the ttl row of a row, or nil.
func (s *Store) TTLOf(f Family, key int64) (*TTL, error) {
	return TTLs.getBy(s.db, "family = ? AND key = ?", f.Table(), key)
}

// ExpiredTTLs lists every ttl that lies in the past.
func (s *Store) ExpiredTTLs() ([]TTL, error) {
	var ttls []TTL
	err := sqlx.Select(s.db, &ttls, "SELECT * FROM ttls WHERE value < ? ORDER BY value", At(s.now()))
	if err != nil {
		return nil, fmt.Errorf("expired ttls: %w", err)
	}
	return ttls, nil
}

// DeleteTTL deletes the row a ttl points at, then the ttl itself.
func (s *Store) DeleteTTL(t TTL) error {
	table, ok := tableByName(t.Family)
	if !ok {
		return fmt.Errorf("%w: ttl %d references unknown table %q", ErrCorruptTTL, t.ID, t.Family)
	}

	var key string
	err := s.tx(func(q Queryer) error {
		var err error
		if key, err = table.keyForID(q, t.Key); err != nil {
			return err
		}
		if _, err := table.deleteByID(q, t.Key); err != nil {
			return err
		}
		_, err = TTLs.DeleteID(q, t.ID)
		return err
	})
	if err != nil {
		return err
	}

	if s.onReap != nil && key != "" {
		s.onReap(table.family(), key)
	}
	return nil
}

// OnReap registers fn to run after an expired row has been deleted, with the
// row's family and natural key. Join rows are not reported.
func (s *Store) OnReap(fn func(f Family, key string)) {
	s.onReap = fn
}

// ReapExpired deletes every expired row. Each deletion commits on its own;
// the first failure stops the run and leaves the rest for the next one.
func (s *Store) ReapExpired() (int, error) {
	expired, err := s.ExpiredTTLs()
	if err != nil {
		return 0, err
	}

	for i, t := range expired {
		if err := s.DeleteTTL(t); err != nil {
			return i, err
		}
		s.log.Debug("reaped", "table", t.Family, "id", t.Key, "expired", t.Value.Format(timeLayout))
	}
	return len(expired), nil
}
