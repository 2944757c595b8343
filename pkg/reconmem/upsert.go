package reconmem

// Outcome is what a single write did.
type Outcome int

const (
	// Inserted means no row had the natural key, so one was created.
	Inserted Outcome = iota + 1
	// Updated means the existing row was in scope and the changeset was applied.
	Updated
	// Unchanged means the existing row already held everything the candidate knew.
	Unchanged
	// Skipped means the existing row is out of scope; new data about it is dropped.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Action is the tri-state callers use to decide whether to announce a write.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// Result describes one write.
type Result struct {
	Outcome Outcome
	// ID of the affected row; zero when the write was skipped.
	ID      int64
	Changes []Change
}

func (r Result) Action() Action {
	switch r.Outcome {
	case Inserted:
		return ActionInsert
	case Updated:
		return ActionUpdate
	default:
		return ActionNone
	}
}

// String renders the result the way the CLI prints it.
func (r Result) String() string {
	if r.Outcome == Updated {
		return "update: " + describeChanges(r.Changes)
	}
	return r.Action().String()
}

// Insertable is a candidate row identified by its natural key.
type Insertable interface {
	Key() string
}

// upsert is the shared insert/update algorithm:
//
//	no row with the key       -> insert, stamped with the scope verdict
//	row exists, out of scope  -> drop the candidate
//	row exists, in scope      -> apply the changeset if it is not empty
func upsert[T Scopable](q Queryer, t Table[T], candidate Insertable, scoped bool) (Result, error) {
	key := candidate.Key()

	existing, err := t.GetOpt(q, key)
	if err != nil {
		return Result{}, err
	}

	if existing == nil {
		if _, err := t.insert(q, withScope(candidate, scoped)); err != nil {
			return Result{}, err
		}
		id, err := t.GetID(q, key)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: Inserted, ID: id}, nil
	}

	row := *existing
	if !row.Scoped() {
		return Result{Outcome: Skipped}, nil
	}

	return applyChanges(q, t, row.Ident(), diff(candidate, row))
}

// patch applies an explicit update record to the row with the given id,
// using the same field policies as upsert.
func patch[T Model](q Queryer, t Table[T], id int64, update any) (Result, error) {
	row, err := t.ByID(q, id)
	if err != nil {
		return Result{}, err
	}
	return applyChanges(q, t, id, diff(update, row))
}

func applyChanges[T any](q Queryer, t Table[T], id int64, changes []Change) (Result, error) {
	if len(changes) == 0 {
		return Result{Outcome: Unchanged, ID: id}, nil
	}
	if err := t.update(q, id, changes); err != nil {
		return Result{}, err
	}
	return Result{Outcome: Updated, ID: id, Changes: changes}, nil
}

// insertLink inserts a join row unless one matching where already exists.
func insertLink[T Model](q Queryer, t Table[T], row any, where string, args ...any) (Result, error) {
	existing, err := t.getBy(q, where, args...)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return Result{Outcome: Unchanged, ID: (*existing).Ident()}, nil
	}

	id, err := t.insert(q, row)
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: Inserted, ID: id}, nil
}
