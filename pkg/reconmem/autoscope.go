package reconmem

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AddRule stores an autoscope rule, replacing the verdict of an existing
// rule for the same kind and value. It affects future inserts only.
func (s *Store) AddRule(r Rule) error {
	r, err := r.normalize()
	if err != nil {
		return err
	}

	_, err = s.db.NamedExec(`INSERT INTO autoscope (object, value, scoped) VALUES (:object, :value, :scoped)
		ON CONFLICT (object, value) DO UPDATE SET scoped = excluded.scoped`, r)
	if err != nil {
		return fmt.Errorf("add rule: %w", err)
	}

	if err := s.rules.Add(r); err != nil {
		return err
	}
	s.log.Debug("autoscope rule added", "kind", r.Kind, "value", r.Value, "scoped", r.Scoped)
	return nil
}

// DeleteRule removes a rule and reports whether it existed.
func (s *Store) DeleteRule(kind RuleKind, value string) (bool, error) {
	r, err := Rule{Kind: kind, Value: value}.normalize()
	if err != nil {
		return false, err
	}

	result, err := s.db.Exec("DELETE FROM autoscope WHERE object = ? AND value = ?", r.Kind, r.Value)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	s.rules.Remove(r.Kind, r.Value)
	s.log.Debug("autoscope rule deleted", "kind", r.Kind, "value", r.Value, "existed", n > 0)
	return n > 0, nil
}

// ListRules returns the persisted rules in insertion order.
func (s *Store) ListRules() ([]Rule, error) {
	var rules []Rule
	if err := sqlx.Select(s.db, &rules, "SELECT * FROM autoscope ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// loadRules rebuilds the in-memory rule set from the table.
func (s *Store) loadRules() error {
	stored, err := s.ListRules()
	if err != nil {
		return err
	}

	rules, err := NewRules(stored...)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	s.rules = rules
	return nil
}
