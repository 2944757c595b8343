package reconmem

import (
	"reflect"
	"strings"
)

// column is one db-tagged struct field.
type column struct {
	name   string
	policy string
	value  reflect.Value
}

// columnsOf flattens the db-tagged fields of a struct, descending into
// embedded structs without a tag.
func columnsOf(v any) []column {
	rv := reflect.Indirect(reflect.ValueOf(v))
	var cols []column
	walkColumns(rv, &cols)
	return cols
}

func walkColumns(rv reflect.Value, cols *[]column) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("db")

		if sf.Anonymous && tag == "" && sf.Type.Kind() == reflect.Struct {
			walkColumns(rv.Field(i), cols)
			continue
		}
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}

		*cols = append(*cols, column{
			name:   tag,
			policy: sf.Tag.Get("changeset"),
			value:  rv.Field(i),
		})
	}
}

// insertColumns returns the columns written on insert; the surrogate id is
// always assigned by the database.
func insertColumns(v any) []string {
	var names []string
	for _, c := range columnsOf(v) {
		if c.name == "id" {
			continue
		}
		names = append(names, c.name)
	}
	return names
}

func insertQuery(table string, row any) string {
	cols := insertColumns(row)
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (:" + strings.Join(cols, ", :") + ")"
}

// withScope returns a copy of row with its unscoped column set.
func withScope(row any, scoped bool) any {
	src := reflect.Indirect(reflect.ValueOf(row))
	cp := reflect.New(src.Type()).Elem()
	cp.Set(src)

	for _, c := range columnsOf(cp.Addr().Interface()) {
		if c.name == "unscoped" && c.value.Kind() == reflect.Bool {
			c.value.SetBool(!scoped)
		}
	}
	return cp.Interface()
}

// deref unwraps an optional field. ok is false for a nil pointer.
func deref(v reflect.Value) (any, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	return v.Interface(), true
}
