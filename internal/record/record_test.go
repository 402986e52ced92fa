package record

import (
	"context"
	"errors"
	"testing"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/infrastructure/database"
	_ "github.com/yurtlab/pjinventory/migrations"
)

// openInventory returns an in-memory database with the inventory schema.
func openInventory(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// bulbValues is a bulb_status row without its synthetic key.
func bulbValues(serial string, life int, status string) []any {
	return []any{serial, life, status, "none", 0, "2020-01-01", nil, nil}
}

// projectorRow is a complete projector_status row.
func projectorRow(serial string) []any {
	return []any{serial, "2020-01-01", nil, 0, "spare", "on site", "long", nil, ""}
}

func historyCount(t *testing.T, tbl *Table, filter ...Cond) int {
	t.Helper()
	rows, err := tbl.History(context.Background(), filter...)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	return len(rows)
}

func TestNextKey(t *testing.T) {
	ctx := context.Background()
	bulbs := New(openInventory(t), catalog.BulbStatus)

	first, err := bulbs.NextKey(ctx)
	if err != nil {
		t.Fatalf("NextKey() error = %v", err)
	}
	if first != 1 {
		t.Errorf("NextKey() on empty table = %d, want 1", first)
	}
	again, _ := bulbs.NextKey(ctx) //nolint:errcheck // checked above
	if again != first {
		t.Errorf("NextKey() not idempotent: %d then %d", first, again)
	}

	const n = 3
	for i := 0; i < n; i++ {
		key, err := bulbs.Insert(ctx, bulbValues("B1", i, "spare")...)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if key != int64(i+1) {
			t.Errorf("Insert() key = %d, want %d", key, i+1)
		}
	}

	next, err := bulbs.NextKey(ctx)
	if err != nil {
		t.Fatalf("NextKey() error = %v", err)
	}
	if next != n+1 {
		t.Errorf("NextKey() after %d inserts = %d, want %d", n, next, n+1)
	}
}

func TestNextKeyRequiresSequence(t *testing.T) {
	status := New(openInventory(t), catalog.ProjectorStatus)

	if _, err := status.NextKey(context.Background()); !errors.Is(err, ErrNoSequence) {
		t.Errorf("NextKey() error = %v, want ErrNoSequence", err)
	}
	if _, err := status.Insert(context.Background(), projectorRow("P1")[1:]...); !errors.Is(err, ErrNoSequence) {
		t.Errorf("Insert() without key error = %v, want ErrNoSequence", err)
	}
}

func TestSyntheticKeysAreNeverReused(t *testing.T) {
	ctx := context.Background()
	db := openInventory(t)
	bulbs := New(db, catalog.BulbStatus)

	for life := 0; life < 2; life++ {
		if _, err := bulbs.Insert(ctx, bulbValues("B1", life, "spare")...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM bulb_status WHERE bulb_id = 2"); err != nil {
		t.Fatalf("delete error = %v", err)
	}

	key, err := bulbs.Insert(ctx, bulbValues("B2", 0, "spare")...)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if key != 3 {
		t.Errorf("Insert() after deleting the top row = %d, want 3", key)
	}
}

func TestExplicitKeyAdvancesSequence(t *testing.T) {
	ctx := context.Background()
	bulbs := New(openInventory(t), catalog.BulbStatus)

	row := append([]any{int64(10)}, bulbValues("B1", 0, "spare")...)
	if _, err := bulbs.Insert(ctx, row...); err != nil {
		t.Fatalf("Insert() with key error = %v", err)
	}

	next, err := bulbs.NextKey(ctx)
	if err != nil {
		t.Fatalf("NextKey() error = %v", err)
	}
	if next != 11 {
		t.Errorf("NextKey() = %d, want 11", next)
	}

	key, err := bulbs.Insert(ctx, bulbValues("B1", 1, "spare")...)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if key != 11 {
		t.Errorf("Insert() key = %d, want 11", key)
	}
}

func TestInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	db := openInventory(t)

	t.Run("primary key", func(t *testing.T) {
		status := New(db, catalog.ProjectorStatus)
		if _, err := status.Insert(ctx, projectorRow("P1")...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		dup := projectorRow("P1")
		dup[4] = "broken"
		if _, err := status.Insert(ctx, dup...); !errors.Is(err, ErrDuplicateKey) {
			t.Fatalf("Insert() duplicate error = %v, want ErrDuplicateKey", err)
		}

		row, err := status.Get(ctx, "P1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := row.String("status"); got != "spare" {
			t.Errorf("status = %q after duplicate insert, want spare", got)
		}
	})

	t.Run("natural key", func(t *testing.T) {
		bulbs := New(db, catalog.BulbStatus)
		if _, err := bulbs.Insert(ctx, bulbValues("B7", 0, "spare")...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		before, _ := bulbs.NextKey(ctx) //nolint:errcheck // compared below

		if _, err := bulbs.Insert(ctx, bulbValues("B7", 0, "broken")...); !errors.Is(err, ErrDuplicateKey) {
			t.Fatalf("Insert() duplicate error = %v, want ErrDuplicateKey", err)
		}

		n, err := bulbs.Count(ctx, Eq("bulb_serial", "B7"))
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("rows for B7 = %d, want 1", n)
		}
		after, _ := bulbs.NextKey(ctx) //nolint:errcheck // compared below
		if after != before {
			t.Errorf("rejected insert consumed a key: NextKey %d -> %d", before, after)
		}
	})
}

func TestInsertColumnCount(t *testing.T) {
	status := New(openInventory(t), catalog.ProjectorStatus)

	_, err := status.Insert(context.Background(), "P1", "2020-01-01")
	if !errors.Is(err, ErrColumnCount) {
		t.Errorf("Insert() error = %v, want ErrColumnCount", err)
	}
}

func TestUpdateWritesHistoryThenChanges(t *testing.T) {
	ctx := context.Background()
	status := New(openInventory(t), catalog.ProjectorStatus)

	if _, err := status.Insert(ctx, projectorRow("P1")...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	values := []any{Keep, 12, Keep, "in use", Keep, Keep, Keep, Keep}
	if err := status.Update(ctx, "P1", values, "2020-02-01", "installed"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	history, err := status.History(ctx, Eq("projector_serial", "P1"))
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history))
	}
	pre := history[0]
	if pre.String("status") != "spare" || pre.Value("slot") != nil {
		t.Errorf("history pre-image = %v, want spare with NULL slot", pre.Values())
	}
	if pre.String(catalog.DateColumn) != "2020-02-01" || pre.String(catalog.NoteColumn) != "installed" {
		t.Errorf("history date/note = %q/%q", pre.String(catalog.DateColumn), pre.String(catalog.NoteColumn))
	}

	row, err := status.Get(ctx, "P1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row.String("status") != "in use" || row.Int("slot") != 12 {
		t.Errorf("row = %v, want in use at slot 12", row.Values())
	}
	if row.String("mfg_date") != "2020-01-01" || row.String("lens_type") != "long" {
		t.Errorf("kept columns changed: %v", row.Values())
	}
}

func TestUpdateWithoutChangesStillRecordsHistory(t *testing.T) {
	ctx := context.Background()
	settings := New(openInventory(t), catalog.ProjectorSettings)

	if _, err := settings.Insert(ctx, "P1", "long", 0, 0, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	values := []any{"long", 0, Keep, Keep, Keep, Keep, Keep, Keep, Keep}
	if err := settings.Update(ctx, "P1", values, "2020-02-01", "checked"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := historyCount(t, settings); got != 1 {
		t.Errorf("history rows = %d, want 1", got)
	}
}

func TestUpdateNotFoundAndAmbiguous(t *testing.T) {
	ctx := context.Background()
	bulbs := New(openInventory(t), catalog.BulbStatus)

	for _, serial := range []string{"B1", "B2"} {
		if _, err := bulbs.Insert(ctx, bulbValues(serial, 0, "spare")...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	values := []any{Keep, Keep, "broken", Keep, Keep, Keep, Keep, Keep}

	tests := []struct {
		name    string
		match   []Cond
		wantErr error
	}{
		{"missing key", []Cond{Eq("bulb_serial", "B9"), Eq("bulb_life", 0)}, ErrNotFound},
		{"two matches", []Cond{Eq("status", "spare")}, ErrAmbiguousKey},
		{"unknown column", []Cond{Eq("colour", "red")}, ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bulbs.UpdateWhere(ctx, tt.match, values, "2020-03-01", "retire")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateWhere() error = %v, want %v", err, tt.wantErr)
			}
			if got := historyCount(t, bulbs); got != 0 {
				t.Errorf("history rows = %d, want 0", got)
			}
			n, _ := bulbs.Count(ctx, Eq("status", "spare")) //nolint:errcheck // compared below
			if n != 2 {
				t.Errorf("spare rows = %d, want 2", n)
			}
		})
	}

	if err := bulbs.Update(ctx, int64(1), values[:3], "2020-03-01", "short"); !errors.Is(err, ErrColumnCount) {
		t.Errorf("Update() with short values error = %v, want ErrColumnCount", err)
	}
}

func TestValueAccessors(t *testing.T) {
	ctx := context.Background()
	db := openInventory(t)
	status := New(db, catalog.ProjectorStatus)
	bulbs := New(db, catalog.BulbStatus)

	if _, err := status.Insert(ctx, projectorRow("P1")...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := bulbs.Insert(ctx, bulbValues("B1", 0, "spare")...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	t.Run("single key", func(t *testing.T) {
		if err := status.SetValue(ctx, "projector_serial", "P1", "error_record", "E42 lamp"); err != nil {
			t.Fatalf("SetValue() error = %v", err)
		}
		v, err := status.GetValue(ctx, "projector_serial", "P1", "error_record")
		if err != nil {
			t.Fatalf("GetValue() error = %v", err)
		}
		if v != "E42 lamp" {
			t.Errorf("GetValue() = %v, want E42 lamp", v)
		}
		if got := historyCount(t, status); got != 0 {
			t.Errorf("SetValue wrote %d history rows, want 0", got)
		}
	})

	t.Run("compound key", func(t *testing.T) {
		err := bulbs.SetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 0, "lamp_hours", 750)
		if err != nil {
			t.Fatalf("SetValueByCompoundKey() error = %v", err)
		}
		v, err := bulbs.GetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 0, "lamp_hours")
		if err != nil {
			t.Fatalf("GetValueByCompoundKey() error = %v", err)
		}
		if v != int64(750) {
			t.Errorf("lamp_hours = %v (%T), want 750", v, v)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := status.GetValue(ctx, "projector_serial", "P9", "status"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetValue() missing error = %v, want ErrNotFound", err)
		}
		if err := status.SetValue(ctx, "projector_serial", "P9", "status", "broken"); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetValue() missing error = %v, want ErrNotFound", err)
		}
		if _, err := status.GetValue(ctx, "projector_serial", "P1", "colour"); !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("GetValue() bad column error = %v, want ErrUnknownColumn", err)
		}
		if err := status.SetValue(ctx, "projector_serial; DROP TABLE x", "P1", "status", "broken"); !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("SetValue() bad key column error = %v, want ErrUnknownColumn", err)
		}
	})
}

func TestValueAccessorsFilterOutsideProjection(t *testing.T) {
	ctx := context.Background()
	db := openInventory(t)
	status := New(db, catalog.ProjectorStatus)
	bulbs := New(db, catalog.BulbStatus)

	if _, err := status.Insert(ctx, projectorRow("P1")...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	for _, life := range []int{0, 1} {
		if _, err := bulbs.Insert(ctx, bulbValues("B1", life, "spare")...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		get    func() (any, error)
		set    func() error
		reread func() (any, error)
		want   any
	}{
		{
			name: "keyed on serial, reading slot",
			get:  func() (any, error) { return status.GetValue(ctx, "projector_serial", "P1", "slot") },
			set:  func() error { return status.SetValue(ctx, "projector_serial", "P1", "slot", 12) },
			reread: func() (any, error) {
				return status.GetValue(ctx, "projector_serial", "P1", "slot")
			},
			want: int64(12),
		},
		{
			name: "keyed on slot, reading serial",
			get:  func() (any, error) { return status.GetValue(ctx, "slot", 12, "projector_serial") },
			set:  func() error { return status.SetValue(ctx, "slot", 12, "lens_type", "short") },
			reread: func() (any, error) {
				return status.GetValue(ctx, "projector_serial", "P1", "lens_type")
			},
			want: "short",
		},
		{
			name: "compound key, reading status",
			get: func() (any, error) {
				return bulbs.GetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 1, "status")
			},
			set: func() error {
				return bulbs.SetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 1, "status", "in use")
			},
			reread: func() (any, error) {
				return bulbs.GetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 1, "status")
			},
			want: "in use",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.get(); err != nil {
				t.Fatalf("GetValue() error = %v", err)
			}
			if err := tt.set(); err != nil {
				t.Fatalf("SetValue() error = %v", err)
			}
			got, err := tt.reread()
			if err != nil {
				t.Fatalf("GetValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetValue() = %v (%T), want %v", got, got, tt.want)
			}
		})
	}

	other, err := bulbs.GetValueByCompoundKey(ctx, "bulb_serial", "B1", "bulb_life", 0, "status")
	if err != nil {
		t.Fatalf("GetValueByCompoundKey() error = %v", err)
	}
	if other != "spare" {
		t.Errorf("life 0 status = %v, want spare", other)
	}
}

func TestRecordHistory(t *testing.T) {
	ctx := context.Background()
	db := openInventory(t)
	status := New(db, catalog.ProjectorStatus)

	if _, err := status.Insert(ctx, projectorRow("P1")...); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	for _, note := range []string{"first", "second"} {
		if err := status.RecordHistory(ctx, "2020-05-01", note, Eq("projector_serial", "P1")); err != nil {
			t.Fatalf("RecordHistory() error = %v", err)
		}
	}

	history, err := status.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].String("note") != "first" || history[1].String("note") != "second" {
		t.Errorf("history = %+v, want first then second", history)
	}

	positions := New(db, catalog.ProjectorPositions)
	if err := positions.RecordHistory(ctx, "2020-05-01", "x", Eq("slot", 1)); !errors.Is(err, ErrNoHistory) {
		t.Errorf("RecordHistory() on positions error = %v, want ErrNoHistory", err)
	}
}

func TestListAllAndMax(t *testing.T) {
	ctx := context.Background()
	bulbs := New(openInventory(t), catalog.BulbStatus)

	for _, b := range []struct {
		serial string
		life   int
		status string
	}{{"B1", 0, "broken"}, {"B1", 1, "spare"}, {"B2", 0, "spare"}} {
		if _, err := bulbs.Insert(ctx, bulbValues(b.serial, b.life, b.status)...); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	all, err := bulbs.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 || all[0].Int("bulb_id") != 1 {
		t.Errorf("ListAll() = %d rows, want 3 ordered by id", len(all))
	}

	spares, err := bulbs.ListAll(ctx, Eq("status", "spare"))
	if err != nil {
		t.Fatalf("ListAll(filter) error = %v", err)
	}
	if len(spares) != 2 {
		t.Errorf("ListAll(spare) = %d rows, want 2", len(spares))
	}

	unset, err := bulbs.ListAll(ctx, Eq("date_out", nil))
	if err != nil {
		t.Fatalf("ListAll(NULL) error = %v", err)
	}
	if len(unset) != 3 {
		t.Errorf("ListAll(date_out IS NULL) = %d rows, want 3", len(unset))
	}

	life, ok, err := bulbs.Max(ctx, "bulb_life", Eq("bulb_serial", "B1"))
	if err != nil || !ok || life != 1 {
		t.Errorf("Max(bulb_life) = %d, %v, %v; want 1, true, nil", life, ok, err)
	}
	_, ok, err = bulbs.Max(ctx, "bulb_life", Eq("bulb_serial", "B9"))
	if err != nil || ok {
		t.Errorf("Max() for unknown serial = ok %v, err %v; want false, nil", ok, err)
	}
}
