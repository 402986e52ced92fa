package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yurtlab/pjinventory/internal/catalog"
)

// Errors returned by Table operations. None of them leaves a partial write
// behind.
var (
	// ErrDuplicateKey is returned by Insert when the primary key or the
	// natural compound key already exists.
	ErrDuplicateKey = errors.New("record: duplicate key")

	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record: not found")

	// ErrAmbiguousKey is returned when more than one row matches a lookup
	// that must address a single row.
	ErrAmbiguousKey = errors.New("record: ambiguous key")

	// ErrColumnCount is returned when the number of values does not fit the
	// table layout.
	ErrColumnCount = errors.New("record: wrong number of values")

	// ErrUnknownColumn is returned for a column name absent from the catalog.
	ErrUnknownColumn = errors.New("record: unknown column")

	// ErrNoHistory is returned by history operations on a table without a
	// history table.
	ErrNoHistory = errors.New("record: table has no history")

	// ErrNoSequence is returned when a synthetic key is requested for a table
	// whose key is supplied by the caller.
	ErrNoSequence = errors.New("record: table has no synthetic key")
)

// Querier is the subset of *sql.DB and *sql.Tx a Table needs.
// *database.DB satisfies it as well.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txBeginner is implemented by queriers that can open a transaction.
// A Table over a *sql.Tx simply joins the caller's transaction.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type keepValue struct{}

// Keep is passed in Update values to leave a column unchanged.
var Keep any = keepValue{}

// IsKeep reports whether v is the Keep marker.
func IsKeep(v any) bool {
	_, ok := v.(keepValue)
	return ok
}

// Cond is an equality condition on one column. A nil Value matches NULL.
type Cond struct {
	Column string
	Value  any
}

// Eq builds a Cond.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// Table is the current table of one catalog entry plus its history table.
type Table struct {
	q   Querier
	def catalog.Table
}

// New returns a Table over def that issues its statements through q.
func New(q Querier, def catalog.Table) *Table {
	return &Table{q: q, def: def}
}

// Definition returns the catalog entry the table was built from.
func (t *Table) Definition() catalog.Table {
	return t.def
}

// NextKey returns the key the next synthetic insert would receive: one more
// than the larger of the persisted sequence value and the largest key in the
// table, or 1 for an empty table. It does not reserve the key.
func (t *Table) NextKey(ctx context.Context) (int64, error) {
	if err := t.requireSequence(); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`SELECT MAX(COALESCE((SELECT value FROM %s WHERE name = ?), 0), (SELECT COALESCE(MAX(%s), 0) FROM %s)) + 1`,
		catalog.Quote(catalog.SequencesTable), catalog.Quote(t.def.Key()), catalog.Quote(t.def.Name))

	var next int64
	if err := t.q.QueryRowContext(ctx, query, t.def.SequenceName()).Scan(&next); err != nil {
		return 0, fmt.Errorf("reading next %s key: %w", t.def.Name, err)
	}
	return next, nil
}

// Insert adds one row and returns its key.
//
// With one value fewer than the table has columns, the key is omitted and a
// synthetic one is reserved from the sequences table in the same transaction
// as the insert. With a value for every column, the first value is the key.
// In both cases an existing primary or natural key yields ErrDuplicateKey and
// nothing is written. For tables keyed by a caller-supplied value the
// returned int64 is the SQLite rowid.
//
// Insert never writes history.
func (t *Table) Insert(ctx context.Context, values ...any) (int64, error) {
	width := len(t.def.Columns)

	switch len(values) {
	case width - 1:
		if err := t.requireSequence(); err != nil {
			return 0, err
		}
		var key int64
		err := t.atomic(ctx, func(tt *Table) error {
			row := append([]any{nil}, values...)
			if err := tt.checkNaturalKey(ctx, row); err != nil {
				return err
			}
			k, err := tt.reserveKey(ctx)
			if err != nil {
				return err
			}
			row[0] = k
			if _, err := tt.insertRow(ctx, row); err != nil {
				return err
			}
			key = k
			return nil
		})
		return key, err

	case width:
		var key int64
		err := t.atomic(ctx, func(tt *Table) error {
			n, err := tt.Count(ctx, Eq(tt.def.Key(), values[0]))
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: %s %s=%v", ErrDuplicateKey, tt.def.Name, tt.def.Key(), values[0])
			}
			if err := tt.checkNaturalKey(ctx, values); err != nil {
				return err
			}
			key, err = tt.insertRow(ctx, values)
			return err
		})
		return key, err

	default:
		return 0, fmt.Errorf("%w: %s takes %d or %d values, got %d",
			ErrColumnCount, t.def.Name, width-1, width, len(values))
	}
}

// Update changes the row whose key equals key. See UpdateWhere.
func (t *Table) Update(ctx context.Context, key any, values []any, date, note string) error {
	return t.UpdateWhere(ctx, []Cond{Eq(t.def.Key(), key)}, values, date, note)
}

// UpdateWhere changes the single row matching every condition.
//
// values holds one entry per non-key column in catalog order; Keep leaves a
// column as it is. The pre-image is appended to the history table with date
// and note before any column is written, even when no column changes. Zero
// matches yield ErrNotFound and several yield ErrAmbiguousKey; in either case
// nothing is written.
func (t *Table) UpdateWhere(ctx context.Context, match []Cond, values []any, date, note string) error {
	if len(values) != len(t.def.Columns)-1 {
		return fmt.Errorf("%w: %s update takes %d values, got %d",
			ErrColumnCount, t.def.Name, len(t.def.Columns)-1, len(values))
	}

	return t.atomic(ctx, func(tt *Table) error {
		current, err := tt.Find(ctx, match...)
		if err != nil {
			return err
		}

		if tt.def.HasHistory() {
			if err := tt.appendHistory(ctx, current, date, note); err != nil {
				return err
			}
		}

		var sets []string
		var args []any
		for i, v := range values {
			if IsKeep(v) {
				continue
			}
			col := tt.def.Columns[i+1].Name
			if sameValue(current.values[i+1], v) {
				continue
			}
			sets = append(sets, catalog.Quote(col)+" = ?")
			args = append(args, normalize(v))
		}
		if len(sets) == 0 {
			return nil
		}

		where, whereArgs, err := tt.where(tt.def.ColumnNames(), match)
		if err != nil {
			return err
		}
		query := fmt.Sprintf("UPDATE %s SET %s%s", catalog.Quote(tt.def.Name), strings.Join(sets, ", "), where)
		if _, err := tt.q.ExecContext(ctx, query, append(args, whereArgs...)...); err != nil {
			return fmt.Errorf("updating %s: %w", tt.def.Name, err)
		}
		return nil
	})
}

// RecordHistory appends the current image of the single matching row to the
// history table without changing it.
func (t *Table) RecordHistory(ctx context.Context, date, note string, match ...Cond) error {
	if !t.def.HasHistory() {
		return fmt.Errorf("%w: %s", ErrNoHistory, t.def.Name)
	}
	current, err := t.Find(ctx, match...)
	if err != nil {
		return err
	}
	return t.appendHistory(ctx, current, date, note)
}

// GetValue reads one column of the row where keyColumn equals keyValue.
func (t *Table) GetValue(ctx context.Context, keyColumn string, keyValue any, column string) (any, error) {
	return t.getValue(ctx, column, Eq(keyColumn, keyValue))
}

// SetValue writes one column of the row where keyColumn equals keyValue.
// No history is written.
func (t *Table) SetValue(ctx context.Context, keyColumn string, keyValue any, column string, value any) error {
	return t.setValue(ctx, column, value, Eq(keyColumn, keyValue))
}

// GetValueByCompoundKey is GetValue for a two-column key.
func (t *Table) GetValueByCompoundKey(ctx context.Context, key1 string, value1 any, key2 string, value2 any, column string) (any, error) {
	return t.getValue(ctx, column, Eq(key1, value1), Eq(key2, value2))
}

// SetValueByCompoundKey is SetValue for a two-column key.
func (t *Table) SetValueByCompoundKey(ctx context.Context, key1 string, value1 any, key2 string, value2 any, column string, value any) error {
	return t.setValue(ctx, column, value, Eq(key1, value1), Eq(key2, value2))
}

// Get returns the row with the given primary key.
func (t *Table) Get(ctx context.Context, key any) (Row, error) {
	return t.Find(ctx, Eq(t.def.Key(), key))
}

// Find returns the single row matching every condition.
func (t *Table) Find(ctx context.Context, match ...Cond) (Row, error) {
	rows, err := t.selectRows(ctx, t.def.Name, t.def.ColumnNames(), match, catalog.Quote(t.def.Key()), 2)
	if err != nil {
		return Row{}, err
	}
	switch len(rows) {
	case 0:
		return Row{}, fmt.Errorf("%w: %s %s", ErrNotFound, t.def.Name, describe(match))
	case 1:
		return rows[0], nil
	default:
		return Row{}, fmt.Errorf("%w: %s %s", ErrAmbiguousKey, t.def.Name, describe(match))
	}
}

// ListAll returns every row matching the filter, ordered by key.
func (t *Table) ListAll(ctx context.Context, filter ...Cond) ([]Row, error) {
	return t.selectRows(ctx, t.def.Name, t.def.ColumnNames(), filter, catalog.Quote(t.def.Key()), 0)
}

// History returns history rows matching the filter in the order they were
// written. Rows carry the date and note columns after the current columns.
func (t *Table) History(ctx context.Context, filter ...Cond) ([]Row, error) {
	if !t.def.HasHistory() {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, t.def.Name)
	}
	return t.selectRows(ctx, t.def.History, t.def.HistoryColumnNames(), filter, "rowid", 0)
}

// Count returns the number of rows matching the filter.
func (t *Table) Count(ctx context.Context, filter ...Cond) (int, error) {
	where, args, err := t.where(t.def.ColumnNames(), filter)
	if err != nil {
		return 0, err
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", catalog.Quote(t.def.Name), where)
	if err := t.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.def.Name, err)
	}
	return n, nil
}

// Max returns the largest value of an integer column among matching rows.
// ok is false when no row matches.
func (t *Table) Max(ctx context.Context, column string, filter ...Cond) (value int64, ok bool, err error) {
	if t.def.Index(column) < 0 {
		return 0, false, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.def.Name, column)
	}
	where, args, err := t.where(t.def.ColumnNames(), filter)
	if err != nil {
		return 0, false, err
	}
	var largest sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s%s", catalog.Quote(column), catalog.Quote(t.def.Name), where)
	if err := t.q.QueryRowContext(ctx, query, args...).Scan(&largest); err != nil {
		return 0, false, fmt.Errorf("reading max %s.%s: %w", t.def.Name, column, err)
	}
	return largest.Int64, largest.Valid, nil
}

// atomic runs fn in a transaction when the querier can start one, and
// directly otherwise (the querier is then already a transaction).
func (t *Table) atomic(ctx context.Context, fn func(*Table) error) error {
	b, ok := t.q.(txBeginner)
	if !ok {
		return fn(t)
	}

	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting %s transaction: %w", t.def.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := fn(&Table{q: tx, def: t.def}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", t.def.Name, err)
	}
	return nil
}

func (t *Table) requireSequence() error {
	if !t.def.Sequence {
		return fmt.Errorf("%w: %s", ErrNoSequence, t.def.Name)
	}
	return nil
}

// reserveKey bumps the table's sequence row and returns the new value. The
// row is created on first use; a key inserted by hand above the sequence
// value is never handed out again.
func (t *Table) reserveKey(ctx context.Context) (int64, error) {
	maxKey := fmt.Sprintf("(SELECT COALESCE(MAX(%s), 0) FROM %s)",
		catalog.Quote(t.def.Key()), catalog.Quote(t.def.Name))
	query := fmt.Sprintf(`INSERT INTO %s (name, value) VALUES (?, %s + 1)
		ON CONFLICT(name) DO UPDATE SET value = MAX(value, %s) + 1
		RETURNING value`, catalog.Quote(catalog.SequencesTable), maxKey, maxKey)

	var key int64
	if err := t.q.QueryRowContext(ctx, query, t.def.SequenceName()).Scan(&key); err != nil {
		return 0, fmt.Errorf("reserving %s key: %w", t.def.Name, err)
	}
	return key, nil
}

func (t *Table) checkNaturalKey(ctx context.Context, row []any) error {
	if len(t.def.NaturalKey) == 0 {
		return nil
	}
	match := make([]Cond, len(t.def.NaturalKey))
	for i, name := range t.def.NaturalKey {
		match[i] = Eq(name, row[t.def.Index(name)])
	}
	n, err := t.Count(ctx, match...)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s %s", ErrDuplicateKey, t.def.Name, describe(match))
	}
	return nil
}

func (t *Table) insertRow(ctx context.Context, row []any) (int64, error) {
	res, err := t.q.ExecContext(ctx, insertStatement(t.def.Name, t.def.ColumnNames()), normalizeAll(row)...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", t.def.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading %s rowid: %w", t.def.Name, err)
	}
	return id, nil
}

func (t *Table) appendHistory(ctx context.Context, current Row, date, note string) error {
	args := append(append([]any{}, current.values...), date, note)
	if _, err := t.q.ExecContext(ctx, insertStatement(t.def.History, t.def.HistoryColumnNames()), args...); err != nil {
		return fmt.Errorf("writing %s: %w", t.def.History, err)
	}
	return nil
}

func (t *Table) getValue(ctx context.Context, column string, match ...Cond) (any, error) {
	if t.def.Index(column) < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.def.Name, column)
	}
	rows, err := t.selectRows(ctx, t.def.Name, []string{column}, match, catalog.Quote(t.def.Key()), 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t.def.Name, describe(match))
	case 1:
		return rows[0].values[0], nil
	default:
		return nil, fmt.Errorf("%w: %s %s", ErrAmbiguousKey, t.def.Name, describe(match))
	}
}

func (t *Table) setValue(ctx context.Context, column string, value any, match ...Cond) error {
	if t.def.Index(column) < 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.def.Name, column)
	}
	return t.atomic(ctx, func(tt *Table) error {
		if _, err := tt.getValue(ctx, column, match...); err != nil {
			return err
		}
		where, args, err := tt.where(tt.def.ColumnNames(), match)
		if err != nil {
			return err
		}
		query := fmt.Sprintf("UPDATE %s SET %s = ?%s", catalog.Quote(tt.def.Name), catalog.Quote(column), where)
		if _, err := tt.q.ExecContext(ctx, query, append([]any{normalize(value)}, args...)...); err != nil {
			return fmt.Errorf("setting %s.%s: %w", tt.def.Name, column, err)
		}
		return nil
	})
}

// selectRows projects columns from table. Filter columns are checked against
// the table's full column list, so the projection may omit them.
func (t *Table) selectRows(ctx context.Context, table string, columns []string, filter []Cond, orderBy string, limit int) ([]Row, error) {
	filterable := t.def.ColumnNames()
	if table == t.def.History {
		filterable = t.def.HistoryColumnNames()
	}
	where, args, err := t.where(filterable, filter)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.Quote(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(quoted, ", "), catalog.Quote(table), where, orderBy)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := t.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		result = append(result, newRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return result, nil
}

// where renders the conditions as a WHERE clause, rejecting any column not in
// allowed.
func (t *Table) where(allowed []string, match []Cond) (string, []any, error) {
	if len(match) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(match))
	args := make([]any, 0, len(match))
	for _, c := range match {
		if !contains(allowed, c.Column) {
			return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.def.Name, c.Column)
		}
		v := normalize(c.Value)
		if v == nil {
			parts = append(parts, catalog.Quote(c.Column)+" IS NULL")
			continue
		}
		parts = append(parts, catalog.Quote(c.Column)+" = ?")
		args = append(args, v)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func insertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.Quote(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		catalog.Quote(table), strings.Join(quoted, ", "), placeholders)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func describe(match []Cond) string {
	parts := make([]string, len(match))
	for i, c := range match {
		parts[i] = fmt.Sprintf("%s=%v", c.Column, normalize(c.Value))
	}
	return strings.Join(parts, " ")
}
