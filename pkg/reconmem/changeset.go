package reconmem

import (
	"fmt"
	"reflect"
	"strings"
)

// Field policies, set with the `changeset` struct tag on insert and update
// records. Untagged fields are cleared when equal to the stored value.
const (
	policyEqual    = ""
	policyEarliest = "min"
	policyLatest   = "max"
	policySkip     = "-"
)

// Change is one column of a changeset.
type Change struct {
	Column string
	Old    any // nil when the stored value is NULL
	New    any
}

func (c Change) String() string {
	if c.Old == nil {
		return fmt.Sprintf("%s=%v", c.Column, display(c.New))
	}
	return fmt.Sprintf("%s: %v -> %v", c.Column, display(c.Old), display(c.New))
}

func display(v any) any {
	if t, ok := v.(Time); ok {
		return t.Format(timeLayout)
	}
	return v
}

// diff computes the changeset of candidate against the stored row. A field
// makes it into the changeset only if the candidate carries a value and the
// field's policy says that value improves on what is stored.
func diff(candidate, stored any) []Change {
	current := make(map[string]reflect.Value)
	for _, c := range columnsOf(stored) {
		current[c.name] = c.value
	}

	var changes []Change
	for _, c := range columnsOf(candidate) {
		switch c.name {
		case "id", "value", "unscoped":
			continue
		}
		if c.policy == policySkip {
			continue
		}

		next, ok := deref(c.value)
		if !ok {
			continue
		}

		sv, found := current[c.name]
		if !found {
			continue
		}
		prev, _ := deref(sv)

		if keepChange(c.policy, prev, next) {
			changes = append(changes, Change{Column: c.name, Old: prev, New: next})
		}
	}

	return changes
}

func keepChange(policy string, prev, next any) bool {
	if prev == nil {
		return true
	}

	switch policy {
	case policyEarliest, policyLatest:
		pt, pok := prev.(Time)
		nt, nok := next.(Time)
		if !pok || !nok {
			return !equalValues(prev, next)
		}
		if policy == policyEarliest {
			return nt.Before(pt.Time)
		}
		return nt.After(pt.Time)
	default:
		return !equalValues(prev, next)
	}
}

func equalValues(a, b any) bool {
	if ta, ok := a.(Time); ok {
		tb, ok := b.(Time)
		return ok && ta.Equal(tb.Time)
	}
	return reflect.DeepEqual(a, b)
}

// describeChanges renders a changeset for logs and CLI output.
func describeChanges(changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
