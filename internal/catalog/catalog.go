// Package catalog declares the tables of the inventory store.
//
// Every table has a "current" layout whose first column is the primary key,
// and optionally a parallel history table. A history table repeats the
// current columns in the same order and appends DateColumn and NoteColumn.
//
// The catalog is the only source of table and column identifiers used in SQL
// built by the record package. Caller-supplied strings are checked against it
// before they reach a query.
//
// The layouts here must match migrations/*.up.sql; catalog_test.go verifies
// that against a migrated database.
package catalog

import "strings"

// History columns appended after the current columns.
const (
	DateColumn = "date_recorded"
	NoteColumn = "note"
)

// Kind is the storage class of a column.
type Kind int

// Column kinds.
const (
	Text Kind = iota
	Integer
)

// String returns the SQLite type name for the kind.
func (k Kind) String() string {
	if k == Integer {
		return "INTEGER"
	}
	return "TEXT"
}

// Column describes one column of a current table.
type Column struct {
	Name string
	Kind Kind
}

// Table describes a current table and its optional history table.
type Table struct {
	// Name is the SQL name of the current table.
	Name string

	// History is the SQL name of the history table, or "" if the entity is
	// not audit-tracked.
	History string

	// Columns are in storage order. Columns[0] is the primary key.
	Columns []Column

	// Sequence marks tables whose primary key is a synthetic integer minted
	// from the sequences table.
	Sequence bool

	// NaturalKey optionally names a compound natural key that must be unique
	// alongside the primary key (bulb serial + life).
	NaturalKey []string
}

// Key returns the primary key column name.
func (t Table) Key() string {
	return t.Columns[0].Name
}

// HasHistory reports whether the table keeps a history table.
func (t Table) HasHistory() bool {
	return t.History != ""
}

// ColumnNames returns the current column names in storage order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HistoryColumnNames returns the history column names in storage order.
// It returns nil when the table has no history.
func (t Table) HistoryColumnNames() []string {
	if !t.HasHistory() {
		return nil
	}
	return append(t.ColumnNames(), DateColumn, NoteColumn)
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SequenceName is the row name this table uses in the sequences table.
func (t Table) SequenceName() string {
	return t.Name + "." + t.Key()
}

// Quote returns name as a quoted SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SequencesTable stores the last minted value for each synthetic key.
const SequencesTable = "sequences"

// Table names.
const (
	ProjectorSettingsName        = "projector_settings"
	ProjectorSettingsHistoryName = "projector_settings_history"
	ProjectorStatusName          = "projector_status"
	ProjectorStatusHistoryName   = "projector_status_history"
	ProjectorPositionsName       = "projector_positions"
	ProjectorRepairsName         = "projector_repairs"
	BulbStatusName               = "bulb_status"
	BulbStatusHistoryName        = "bulb_status_history"
)

// ProjectorSettings holds colour calibration per projector.
var ProjectorSettings = Table{
	Name:    ProjectorSettingsName,
	History: ProjectorSettingsHistoryName,
	Columns: []Column{
		{"projector_serial", Text},
		{"lens_type", Text},
		{"red_offset", Integer},
		{"green_offset", Integer},
		{"blue_offset", Integer},
		{"red_gain", Integer},
		{"green_gain", Integer},
		{"blue_gain", Integer},
		{"color_temp", Integer},
		{"gamma", Integer},
	},
}

// ProjectorStatus holds the lifecycle state of each projector.
var ProjectorStatus = Table{
	Name:    ProjectorStatusName,
	History: ProjectorStatusHistoryName,
	Columns: []Column{
		{"projector_serial", Text},
		{"mfg_date", Text},
		{"slot", Integer},
		{"total_hours", Integer},
		{"status", Text},
		{"location", Text},
		{"lens_type", Text},
		{"repair_id", Integer},
		{"error_record", Text},
	},
}

// ProjectorPositions is the wiring directory for each mounting slot.
var ProjectorPositions = Table{
	Name: ProjectorPositionsName,
	Columns: []Column{
		{"slot", Integer},
		{"serial_switch", Text},
		{"serial_port", Text},
		{"server", Text},
		{"display", Text},
	},
}

// ProjectorRepairs is the append-only repair log.
var ProjectorRepairs = Table{
	Name:     ProjectorRepairsName,
	Sequence: true,
	Columns: []Column{
		{"repair_id", Integer},
		{"projector_serial", Text},
		{"repair_type", Text},
		{"technician", Text},
		{"repair_date", Text},
		{"note", Text},
	},
}

// BulbStatus holds one row per (bulb serial, life).
var BulbStatus = Table{
	Name:       BulbStatusName,
	History:    BulbStatusHistoryName,
	Sequence:   true,
	NaturalKey: []string{"bulb_serial", "bulb_life"},
	Columns: []Column{
		{"bulb_id", Integer},
		{"bulb_serial", Text},
		{"bulb_life", Integer},
		{"status", Text},
		{"projector_serial", Text},
		{"lamp_hours", Integer},
		{"date_in", Text},
		{"date_out", Text},
		{"repair_id", Integer},
	},
}

// All returns every table in dependency order.
func All() []Table {
	return []Table{
		ProjectorRepairs,
		ProjectorSettings,
		ProjectorStatus,
		ProjectorPositions,
		BulbStatus,
	}
}

// Lookup finds a table by current or history name.
func Lookup(name string) (Table, bool) {
	for _, t := range All() {
		if t.Name == name || (t.History != "" && t.History == name) {
			return t, true
		}
	}
	return Table{}, false
}
