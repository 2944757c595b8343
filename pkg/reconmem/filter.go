package reconmem

import (
	"fmt"
	"strings"
)

var filterOperators = []string{"=", "!=", "<", ">", "<=", ">=", "like"}

// Filter is a validated boolean predicate built from user supplied tokens.
// It is the only place raw predicate strings are constructed.
type Filter struct {
	query string
}

// ParseFilter turns tokens like ["where", "value", "like", "%.com"] into a
// predicate. The first token must be WHERE.
func ParseFilter(args []string) (Filter, error) {
	if len(args) == 0 {
		return Filter{}, fmt.Errorf("%w: Filter condition is required", ErrInvalidFilter)
	}

	if !strings.EqualFold(args[0], "where") {
		return Filter{}, fmt.Errorf("%w: Filter must begin with WHERE", ErrInvalidFilter)
	}

	var b strings.Builder
	expectValue := false

	for _, arg := range args[1:] {
		b.WriteByte(' ')

		if isFilterOperator(arg) {
			b.WriteString(arg)
			expectValue = true
			continue
		}

		if idx := strings.IndexByte(arg, '='); idx > 0 {
			b.WriteString(arg[:idx])
			b.WriteString(" = ")
			b.WriteString(escapeLiteral(arg[idx+1:]))
			continue
		}

		if expectValue {
			b.WriteString(escapeLiteral(arg))
			expectValue = false
		} else {
			b.WriteString(arg)
		}
	}

	return Filter{query: b.String()}, nil
}

// ParseOptionalFilter is ParseFilter except that no tokens at all matches every row.
func ParseOptionalFilter(args []string) (Filter, error) {
	if len(args) == 0 {
		return MatchAll(), nil
	}
	return ParseFilter(args)
}

// MatchAll returns a filter that matches every row.
func MatchAll() Filter {
	return Filter{query: "1"}
}

// Query returns the raw predicate, suitable to follow WHERE.
func (f Filter) Query() string {
	if f.query == "" {
		return "1"
	}
	return f.query
}

// AndScoped restricts the filter to rows that are in scope.
func (f Filter) AndScoped() Filter {
	return Filter{query: "(" + f.Query() + ") AND unscoped=0"}
}

// Equal reports whether both filters produce the same predicate.
func (f Filter) Equal(other Filter) bool {
	return f.Query() == other.Query()
}

func (f Filter) String() string {
	return "WHERE " + strings.TrimSpace(f.Query())
}

func isFilterOperator(token string) bool {
	for _, op := range filterOperators {
		if strings.EqualFold(token, op) {
			return true
		}
	}
	return false
}

// escapeLiteral quotes s as a SQL string literal. Only single quotes are
// doubled; backslashes pass through untouched.
func escapeLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
