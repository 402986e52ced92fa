// Package bulb manages bulb_status, one row per bulb serial and life.
//
// A bulb's life counts how often it has been re-lamped. The (serial, life)
// pair never changes once written: re-lamping inserts the next life as a new
// row and leaves the old one as it was.
//
// Like projector status, setters write one column without history; a
// transition snapshots once with RecordHistory before its writes.
package bulb

import (
	"context"
	"errors"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/record"
)

// Domain errors for the bulb package.
var (
	// ErrNotFound is returned when a (serial, life) or id has no row.
	ErrNotFound = errors.New("bulb: not found")

	// ErrExists is returned when adding a (serial, life) that already exists.
	ErrExists = errors.New("bulb: already exists")
)

const (
	serialColumn    = "bulb_serial"
	lifeColumn      = "bulb_life"
	projectorColumn = "projector_serial"
)

// Bulb is a row of bulb_status.
type Bulb struct {
	ID        int64            `json:"id"`
	Serial    string           `json:"serial"`
	Life      int              `json:"life"`
	Status    equipment.Status `json:"status"`
	Projector string           `json:"projector_serial"`
	LampHours int              `json:"lamp_hours"`
	DateIn    equipment.Date   `json:"date_in"`
	DateOut   equipment.Date   `json:"date_out"`
	RepairID  int64            `json:"repair_id,omitempty"`
}

// Installed reports whether the bulb is fitted to a projector.
func (b Bulb) Installed() bool {
	return b.Projector != "" && b.Projector != equipment.NoProjector
}

// Record is a row of bulb_status_history.
type Record struct {
	Bulb
	Date equipment.Date `json:"date"`
	Note string         `json:"note"`
}

// StatusTable manages bulb_status.
type StatusTable struct {
	t *record.Table
}

// NewStatusTable returns a StatusTable issuing statements through q.
func NewStatusTable(q record.Querier) *StatusTable {
	return &StatusTable{t: record.New(q, catalog.BulbStatus)}
}

// Add creates a spare, unfitted bulb with zero lamp hours and returns its id.
func (s *StatusTable) Add(ctx context.Context, serial string, life int, dateIn equipment.Date) (int64, error) {
	id, err := s.t.Insert(ctx,
		serial, life, equipment.StatusSpare, equipment.NoProjector, 0,
		dateIn, nil, nil)
	if errors.Is(err, record.ErrDuplicateKey) {
		return 0, fmt.Errorf("%w: %s life %d", ErrExists, serial, life)
	}
	return id, err
}

// Get returns the row for (serial, life).
func (s *StatusTable) Get(ctx context.Context, serial string, life int) (Bulb, error) {
	row, err := s.t.Find(ctx, key(serial, life)...)
	if err != nil {
		return Bulb{}, translate(err, serial, life)
	}
	return fromRow(row), nil
}

// GetByID returns the row with the given synthetic id.
func (s *StatusTable) GetByID(ctx context.Context, id int64) (Bulb, error) {
	row, err := s.t.Get(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return Bulb{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return Bulb{}, err
	}
	return fromRow(row), nil
}

// Exists reports whether (serial, life) has a row.
func (s *StatusTable) Exists(ctx context.Context, serial string, life int) (bool, error) {
	n, err := s.t.Count(ctx, key(serial, life)...)
	return n > 0, err
}

// LatestLife returns the highest life recorded for serial.
func (s *StatusTable) LatestLife(ctx context.Context, serial string) (int, error) {
	life, ok, err := s.t.Max(ctx, lifeColumn, record.Eq(serialColumn, serial))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, serial)
	}
	return int(life), nil
}

// InstalledIn returns the bulbs currently fitted to a projector.
func (s *StatusTable) InstalledIn(ctx context.Context, projectorSerial string) ([]Bulb, error) {
	return s.list(ctx, record.Eq(projectorColumn, projectorSerial))
}

// SetLampHours writes the cumulative lamp hours.
func (s *StatusTable) SetLampHours(ctx context.Context, serial string, life, hours int) error {
	return s.set(ctx, serial, life, "lamp_hours", hours)
}

// SetInstalledIn writes the projector the bulb is fitted to; pass
// equipment.NoProjector when it is removed.
func (s *StatusTable) SetInstalledIn(ctx context.Context, serial string, life int, projectorSerial string) error {
	return s.set(ctx, serial, life, projectorColumn, projectorSerial)
}

// SetRepairReference points the bulb at the repair that last moved it.
func (s *StatusTable) SetRepairReference(ctx context.Context, serial string, life int, repairID int64) error {
	return s.set(ctx, serial, life, "repair_id", repairID)
}

// SetStatus writes the lifecycle status.
func (s *StatusTable) SetStatus(ctx context.Context, serial string, life int, status equipment.Status) error {
	return s.set(ctx, serial, life, "status", status)
}

// SetDateOut writes the date the bulb was taken out of service.
func (s *StatusTable) SetDateOut(ctx context.Context, serial string, life int, date equipment.Date) error {
	return s.set(ctx, serial, life, "date_out", date)
}

// RecordHistory snapshots the row for (serial, life) with date and note.
func (s *StatusTable) RecordHistory(ctx context.Context, serial string, life int, date equipment.Date, note string) error {
	err := s.t.RecordHistory(ctx, date.String(), note, key(serial, life)...)
	return translate(err, serial, life)
}

// History returns the snapshots of (serial, life), oldest first.
func (s *StatusTable) History(ctx context.Context, serial string, life int) ([]Record, error) {
	rows, err := s.t.History(ctx, key(serial, life)...)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record{
			Bulb: fromRow(row),
			Date: equipment.StoredDate(row.String(catalog.DateColumn)),
			Note: row.String(catalog.NoteColumn),
		}
	}
	return out, nil
}

// List returns every bulb row ordered by id.
func (s *StatusTable) List(ctx context.Context) ([]Bulb, error) {
	return s.list(ctx)
}

// ListSerial returns every life of one bulb serial ordered by id.
func (s *StatusTable) ListSerial(ctx context.Context, serial string) ([]Bulb, error) {
	return s.list(ctx, record.Eq(serialColumn, serial))
}

func (s *StatusTable) list(ctx context.Context, filter ...record.Cond) ([]Bulb, error) {
	rows, err := s.t.ListAll(ctx, filter...)
	if err != nil {
		return nil, err
	}
	out := make([]Bulb, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

func (s *StatusTable) set(ctx context.Context, serial string, life int, column string, value any) error {
	err := s.t.SetValueByCompoundKey(ctx, serialColumn, serial, lifeColumn, life, column, value)
	return translate(err, serial, life)
}

func key(serial string, life int) []record.Cond {
	return []record.Cond{record.Eq(serialColumn, serial), record.Eq(lifeColumn, life)}
}

func translate(err error, serial string, life int) error {
	if errors.Is(err, record.ErrNotFound) {
		return fmt.Errorf("%w: %s life %d", ErrNotFound, serial, life)
	}
	return err
}

func fromRow(row record.Row) Bulb {
	id, _ := row.NullInt("bulb_id")
	repairID, _ := row.NullInt("repair_id")
	return Bulb{
		ID:        int64(id),
		Serial:    row.String(serialColumn),
		Life:      row.Int(lifeColumn),
		Status:    equipment.Status(row.String("status")),
		Projector: row.String(projectorColumn),
		LampHours: row.Int("lamp_hours"),
		DateIn:    equipment.StoredDate(row.String("date_in")),
		DateOut:   equipment.StoredDate(row.String("date_out")),
		RepairID:  int64(repairID),
	}
}
