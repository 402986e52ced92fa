package record

import (
	"database/sql/driver"
	"reflect"
	"strconv"
)

// Row is one row read from a current or history table.
type Row struct {
	columns []string
	values  []any
}

func newRow(columns []string, values []any) Row {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return Row{columns: columns, values: values}
}

// Columns returns the column names in storage order.
func (r Row) Columns() []string {
	return r.columns
}

// Values returns the raw values in storage order: int64, string or nil.
func (r Row) Values() []any {
	return r.values
}

// Value returns the raw value of a column, or nil if the column is absent.
func (r Row) Value(column string) any {
	for i, c := range r.columns {
		if c == column {
			return r.values[i]
		}
	}
	return nil
}

// String returns a column as text. NULL reads as "".
func (r Row) String(column string) string {
	switch v := r.Value(column).(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Int returns an integer column. NULL and non-numeric text read as 0.
func (r Row) Int(column string) int {
	n, _ := r.NullInt(column)
	return n
}

// NullInt returns an integer column and whether it was non-NULL.
func (r Row) NullInt(column string) (int, bool) {
	switch v := r.Value(column).(type) {
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// normalize converts a caller value to the form it is stored and compared
// in: int64 for integer kinds, string for string kinds, nil for nil.
// driver.Valuer implementations are resolved first.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		resolved, err := valuer.Value()
		if err != nil {
			return v
		}
		return normalize(resolved)
	}

	switch x := v.(type) {
	case string, int64, float64, bool:
		return x
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()) //nolint:gosec // values fit the column range
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}

// sameValue reports whether a stored value equals a requested one.
func sameValue(stored, requested any) bool {
	a, b := normalize(stored), normalize(requested)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
