package bulb

import (
	"context"
	"errors"
	"testing"

	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/infrastructure/database"
	_ "github.com/yurtlab/pjinventory/migrations"
)

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

var dateIn = equipment.MustDate("2020-01-15")

func TestAddAndGet(t *testing.T) {
	ctx := context.Background()
	bulbs := NewStatusTable(openInventory(t))

	id, err := bulbs.Add(ctx, "B1", 0, dateIn)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if id != 1 {
		t.Errorf("Add() id = %d, want 1", id)
	}

	got, err := bulbs.Get(ctx, "B1", 0)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := Bulb{ID: 1, Serial: "B1", Status: equipment.StatusSpare, Projector: equipment.NoProjector, DateIn: dateIn}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if got.Installed() {
		t.Error("new bulb should not be installed")
	}

	byID, err := bulbs.GetByID(ctx, 1)
	if err != nil || byID != want {
		t.Errorf("GetByID(1) = %+v, %v", byID, err)
	}

	if _, err := bulbs.Add(ctx, "B1", 0, dateIn); !errors.Is(err, ErrExists) {
		t.Errorf("Add() duplicate error = %v, want ErrExists", err)
	}
	if _, err := bulbs.Get(ctx, "B1", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(B1, 1) error = %v, want ErrNotFound", err)
	}
	if _, err := bulbs.GetByID(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(7) error = %v, want ErrNotFound", err)
	}
}

func TestSettersKeyedBySerialAndLife(t *testing.T) {
	ctx := context.Background()
	bulbs := NewStatusTable(openInventory(t))

	for life := 0; life < 2; life++ {
		if _, err := bulbs.Add(ctx, "B1", life, dateIn); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	out := equipment.MustDate("2020-06-01")
	if err := bulbs.RecordHistory(ctx, "B1", 1, out, "fitted to P1"); err != nil {
		t.Fatalf("RecordHistory() error = %v", err)
	}
	if err := bulbs.SetStatus(ctx, "B1", 1, equipment.StatusInUse); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := bulbs.SetInstalledIn(ctx, "B1", 1, "P1"); err != nil {
		t.Fatalf("SetInstalledIn() error = %v", err)
	}
	if err := bulbs.SetLampHours(ctx, "B1", 1, 420); err != nil {
		t.Fatalf("SetLampHours() error = %v", err)
	}
	if err := bulbs.SetDateOut(ctx, "B1", 0, out); err != nil {
		t.Fatalf("SetDateOut() error = %v", err)
	}

	life0, _ := bulbs.Get(ctx, "B1", 0) //nolint:errcheck // compared below
	life1, _ := bulbs.Get(ctx, "B1", 1) //nolint:errcheck // compared below
	if life0.Status != equipment.StatusSpare || life0.DateOut != out || life0.LampHours != 0 {
		t.Errorf("life 0 = %+v", life0)
	}
	if life1.Status != equipment.StatusInUse || life1.Projector != "P1" || life1.LampHours != 420 || !life1.DateOut.IsZero() {
		t.Errorf("life 1 = %+v", life1)
	}

	history, err := bulbs.History(ctx, "B1", 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Bulb.Status != equipment.StatusSpare || history[0].Note != "fitted to P1" {
		t.Errorf("History() = %+v", history)
	}
	if h0, _ := bulbs.History(ctx, "B1", 0); len(h0) != 0 { //nolint:errcheck // length checked
		t.Errorf("life 0 history = %d rows, want 0", len(h0))
	}

	installed, err := bulbs.InstalledIn(ctx, "P1")
	if err != nil || len(installed) != 1 || installed[0].Life != 1 {
		t.Errorf("InstalledIn(P1) = %+v, %v", installed, err)
	}

	if err := bulbs.SetStatus(ctx, "B9", 0, equipment.StatusBroken); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus() missing error = %v, want ErrNotFound", err)
	}
}

func TestLatestLife(t *testing.T) {
	ctx := context.Background()
	bulbs := NewStatusTable(openInventory(t))

	if _, err := bulbs.LatestLife(ctx, "B1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestLife() on unknown serial error = %v, want ErrNotFound", err)
	}

	for _, life := range []int{0, 1, 2} {
		if _, err := bulbs.Add(ctx, "B1", life, dateIn); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if _, err := bulbs.Add(ctx, "B2", 5, dateIn); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	life, err := bulbs.LatestLife(ctx, "B1")
	if err != nil || life != 2 {
		t.Errorf("LatestLife(B1) = %d, %v; want 2", life, err)
	}

	lives, err := bulbs.ListSerial(ctx, "B1")
	if err != nil || len(lives) != 3 {
		t.Errorf("ListSerial(B1) = %d rows, %v; want 3", len(lives), err)
	}
	all, err := bulbs.List(ctx)
	if err != nil || len(all) != 4 {
		t.Errorf("List() = %d rows, %v; want 4", len(all), err)
	}
}
