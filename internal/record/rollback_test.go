package record

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yurtlab/pjinventory/internal/catalog"
)

// A failed column write must roll back the history row written before it.
func TestUpdateRollsBackHistoryOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	columns := catalog.ProjectorStatus.ColumnNames()
	errDisk := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "projector_status" WHERE "projector_serial" = \? ORDER BY .* LIMIT 2`).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("P1", "2020-01-01", int64(12), int64(0), "in use", "on site", "long", nil, ""))
	mock.ExpectExec(`INSERT INTO "projector_status_history"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE "projector_status" SET "slot" = \?, "status" = \? WHERE "projector_serial" = \?`).
		WithArgs(nil, "broken", "P1").
		WillReturnError(errDisk)
	mock.ExpectRollback()

	status := New(db, catalog.ProjectorStatus)
	values := []any{Keep, nil, Keep, "broken", Keep, Keep, Keep, Keep}
	err = status.Update(context.Background(), "P1", values, "2020-03-01", "uninstalled")
	if !errors.Is(err, errDisk) {
		t.Fatalf("Update() error = %v, want %v", err, errDisk)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRollsBackReservedKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	errConstraint := errors.New("FOREIGN KEY constraint failed")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "bulb_status" WHERE "bulb_serial" = \? AND "bulb_life" = \?`).
		WithArgs("B1", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(0)))
	mock.ExpectQuery(`INSERT INTO "sequences" .* RETURNING value`).
		WithArgs("bulb_status.bulb_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO "bulb_status"`).
		WillReturnError(errConstraint)
	mock.ExpectRollback()

	bulbs := New(db, catalog.BulbStatus)
	_, err = bulbs.Insert(context.Background(), "B1", 0, "spare", "none", 0, "2020-01-01", nil, int64(99))
	if !errors.Is(err, errConstraint) {
		t.Fatalf("Insert() error = %v, want %v", err, errConstraint)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
