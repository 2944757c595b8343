package reconmem

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Queryer is what every table operation runs against: the store's *sqlx.DB
// or a *sqlx.Tx opened from it.
type Queryer = sqlx.Ext

// Model is implemented by every stored row.
type Model interface {
	Ident() int64
}

// Keyed rows have a single printable natural key.
type Keyed interface {
	Model
	Key() string
}

// Scopable rows carry the unscoped flag.
type Scopable interface {
	Keyed
	Scoped() bool
}

// Entity holds the columns shared by every scopable family.
type Entity struct {
	ID       int64  `db:"id"`
	Value    string `db:"value"`
	Unscoped bool   `db:"unscoped"`
}

// Ident returns the surrogate id.
func (e Entity) Ident() int64 { return e.ID }

// Key returns the natural key.
func (e Entity) Key() string { return e.Value }

// Scoped reports whether the row is in scope.
func (e Entity) Scoped() bool { return !e.Unscoped }

// Table describes how one family is stored. The same generic code serves
// every family; only the descriptor differs.
type Table[T any] struct {
	Family Family
	Name   string
	// Param is the column FilterWithParam constrains, if the family has one.
	Param string
	// Keyless tables have a composite natural key and no value column.
	Keyless  bool
	Scopable bool
}

// List returns every row in storage order.
func (t Table[T]) List(q Queryer) ([]T, error) {
	var rows []T
	if err := sqlx.Select(q, &rows, "SELECT * FROM "+t.Name); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.Name, err)
	}
	return rows, nil
}

// Filter returns the rows matching f.
func (t Table[T]) Filter(q Queryer, f Filter) ([]T, error) {
	var rows []T
	if err := sqlx.Select(q, &rows, "SELECT * FROM "+t.Name+" WHERE "+f.Query()); err != nil {
		return nil, fmt.Errorf("filter %s: %w", t.Name, err)
	}
	return rows, nil
}

// FilterWithParam is Filter additionally constrained to Param = param.
// Families without a Param fall back to Filter.
func (t Table[T]) FilterWithParam(q Queryer, f Filter, param *string) ([]T, error) {
	if param == nil || t.Param == "" {
		return t.Filter(q, f)
	}

	var rows []T
	query := fmt.Sprintf("SELECT * FROM %s WHERE (%s) AND %s = ?", t.Name, f.Query(), t.Param)
	if err := sqlx.Select(q, &rows, query, *param); err != nil {
		return nil, fmt.Errorf("filter %s: %w", t.Name, err)
	}
	return rows, nil
}

// Delete removes the rows matching f together with their ttls.
func (t Table[T]) Delete(q Queryer, f Filter) (int64, error) {
	if err := t.dropTTLs(q, "key IN (SELECT id FROM "+t.Name+" WHERE "+f.Query()+")"); err != nil {
		return 0, err
	}
	return t.exec(q, "delete", "DELETE FROM "+t.Name+" WHERE "+f.Query())
}

// DeleteID removes one row together with its ttl.
func (t Table[T]) DeleteID(q Queryer, id int64) (int64, error) {
	if err := t.dropTTLs(q, "key = ?", id); err != nil {
		return 0, err
	}
	return t.exec(q, "delete", "DELETE FROM "+t.Name+" WHERE id = ?", id)
}

// dropTTLs deletes the ttls of this table's rows selected by keys.
func (t Table[T]) dropTTLs(q Queryer, keys string, args ...any) error {
	if t.Name == ttlTable {
		return nil
	}
	args = append([]any{t.Name}, args...)
	_, err := q.Exec("DELETE FROM "+ttlTable+" WHERE family = ? AND "+keys, args...)
	if err != nil {
		return fmt.Errorf("delete %s ttls: %w", t.Name, err)
	}
	return nil
}

// ByID looks a row up by surrogate id and fails if it is missing.
func (t Table[T]) ByID(q Queryer, id int64) (T, error) {
	row, err := t.getBy(q, "id = ?", id)
	if err != nil {
		var zero T
		return zero, err
	}
	if row == nil {
		var zero T
		return zero, fmt.Errorf("%s id %d: %w", t.Family, id, ErrNotFound)
	}
	return *row, nil
}

// Get looks a row up by natural key and fails if it is missing.
func (t Table[T]) Get(q Queryer, key string) (T, error) {
	row, err := t.GetOpt(q, key)
	if err != nil {
		var zero T
		return zero, err
	}
	if row == nil {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", t.Family, key, ErrNotFound)
	}
	return *row, nil
}

// GetOpt looks a row up by natural key. A missing row is not an error.
func (t Table[T]) GetOpt(q Queryer, key string) (*T, error) {
	if t.Keyless {
		return nil, fmt.Errorf("%w: %s has no single natural key", ErrUnsupported, t.Family)
	}
	return t.getBy(q, "value = ?", key)
}

// GetID resolves a natural key to the row id.
func (t Table[T]) GetID(q Queryer, key string) (int64, error) {
	if t.Keyless {
		return 0, fmt.Errorf("%w: %s has no single natural key", ErrUnsupported, t.Family)
	}

	var id int64
	err := q.QueryRowx("SELECT id FROM "+t.Name+" WHERE value = ?", key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s %q: %w", t.Family, key, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", t.Name, err)
	}
	return id, nil
}

// Scope marks every row matching f as in scope.
func (t Table[T]) Scope(q Queryer, f Filter) (int64, error) {
	return t.setUnscoped(q, f, false)
}

// Noscope marks every row matching f as out of scope.
func (t Table[T]) Noscope(q Queryer, f Filter) (int64, error) {
	return t.setUnscoped(q, f, true)
}

// SetScoped flips the flag of a single row.
func (t Table[T]) SetScoped(q Queryer, id int64, scoped bool) error {
	if !t.Scopable {
		return fmt.Errorf("%w: %s", ErrNotScopable, t.Family)
	}
	_, err := t.exec(q, "scope", "UPDATE "+t.Name+" SET unscoped = ? WHERE id = ?", !scoped, id)
	return err
}

func (t Table[T]) setUnscoped(q Queryer, f Filter, unscoped bool) (int64, error) {
	if !t.Scopable {
		return 0, fmt.Errorf("%w: %s", ErrNotScopable, t.Family)
	}
	return t.exec(q, "scope", "UPDATE "+t.Name+" SET unscoped = ? WHERE "+f.Query(), unscoped)
}

func (t Table[T]) getBy(q Queryer, where string, args ...any) (*T, error) {
	var row T
	err := sqlx.Get(q, &row, "SELECT * FROM "+t.Name+" WHERE "+where+" LIMIT 1", args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.Name, err)
	}
	return &row, nil
}

func (t Table[T]) insert(q Queryer, row any) (int64, error) {
	result, err := sqlx.NamedExec(q, insertQuery(t.Name, row), row)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.Name, err)
	}
	return result.LastInsertId()
}

func (t Table[T]) update(q Queryer, id int64, changes []Change) error {
	sets := make([]string, len(changes))
	args := make([]any, 0, len(changes)+1)
	for i, c := range changes {
		sets[i] = c.Column + " = ?"
		args = append(args, c.New)
	}
	args = append(args, id)

	_, err := t.exec(q, "update", "UPDATE "+t.Name+" SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

func (t Table[T]) exec(q Queryer, op, query string, args ...any) (int64, error) {
	result, err := q.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", op, t.Name, err)
	}
	return result.RowsAffected()
}

// anyTable is the non-generic view of a Table used for lookups by family name.
type anyTable interface {
	family() Family
	tableName() string
	scopable() bool
	listAny(q Queryer, f Filter) ([]any, error)
	deleteWhere(q Queryer, f Filter) (int64, error)
	deleteByID(q Queryer, id int64) (int64, error)
	scopeWhere(q Queryer, f Filter, scoped bool) (int64, error)
	idForKey(q Queryer, key string) (int64, error)
	keyForID(q Queryer, id int64) (string, error)
}

func (t Table[T]) family() Family    { return t.Family }
func (t Table[T]) tableName() string { return t.Name }
func (t Table[T]) scopable() bool    { return t.Scopable }

func (t Table[T]) listAny(q Queryer, f Filter) ([]any, error) {
	rows, err := t.Filter(q, f)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out, nil
}

func (t Table[T]) deleteWhere(q Queryer, f Filter) (int64, error) { return t.Delete(q, f) }
func (t Table[T]) deleteByID(q Queryer, id int64) (int64, error)  { return t.DeleteID(q, id) }

func (t Table[T]) scopeWhere(q Queryer, f Filter, scoped bool) (int64, error) {
	return t.setUnscoped(q, f, !scoped)
}

func (t Table[T]) idForKey(q Queryer, key string) (int64, error) { return t.GetID(q, key) }

// keyForID returns the natural key of a row, or "" for join tables and missing rows.
func (t Table[T]) keyForID(q Queryer, id int64) (string, error) {
	if t.Keyless {
		return "", nil
	}

	var key string
	err := q.QueryRowx("SELECT value FROM "+t.Name+" WHERE id = ?", id).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", t.Name, err)
	}
	return key, nil
}

var registry = map[Family]anyTable{
	FamilyDomain:          Domains,
	FamilySubdomain:       Subdomains,
	FamilyIpAddr:          IpAddrs,
	FamilyURL:             URLs,
	FamilyEmail:           Emails,
	FamilyPhoneNumber:     PhoneNumbers,
	FamilyDevice:          Devices,
	FamilyNetwork:         Networks,
	FamilyAccount:         Accounts,
	FamilyBreach:          Breaches,
	FamilyImage:           Images,
	FamilyPort:            Ports,
	FamilyNetblock:        Netblocks,
	FamilyCryptoAddr:      CryptoAddrs,
	FamilySubdomainIpAddr: SubdomainIpAddrs,
	FamilyNetworkDevice:   NetworkDevices,
	FamilyBreachEmail:     BreachEmails,
}

func tableByName(name string) (anyTable, bool) {
	f, ok := FamilyForTable(name)
	if !ok {
		return nil, false
	}
	return registry[f], true
}
