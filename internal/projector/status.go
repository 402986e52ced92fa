package projector

import (
	"context"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/record"
)

const serialColumn = "projector_serial"

// Status is a row of projector_status.
type Status struct {
	Serial      string             `json:"serial"`
	MfgDate     equipment.Date     `json:"mfg_date"`
	Slot        int                `json:"slot,omitempty"` // 0 when not installed
	TotalHours  int                `json:"total_hours"`
	Status      equipment.Status   `json:"status"`
	Location    equipment.Location `json:"location"`
	Lens        equipment.Lens     `json:"lens"`
	RepairID    int64              `json:"repair_id,omitempty"` // 0 when never repaired
	ErrorRecord string             `json:"error_record,omitempty"`
}

// Installed reports whether the projector occupies a slot.
func (s Status) Installed() bool {
	return s.Slot > 0
}

// StatusRecord is a row of projector_status_history.
type StatusRecord struct {
	Status
	Date equipment.Date `json:"date"`
	Note string         `json:"note"`
}

// StatusTable manages the lifecycle state of each projector.
type StatusTable struct {
	t *record.Table
}

// NewStatusTable returns a StatusTable issuing statements through q.
func NewStatusTable(q record.Querier) *StatusTable {
	return &StatusTable{t: record.New(q, catalog.ProjectorStatus)}
}

// Add creates the status row for a new projector: spare, on site, no slot,
// zero hours.
func (s *StatusTable) Add(ctx context.Context, serial string, mfgDate equipment.Date, lens equipment.Lens) error {
	_, err := s.t.Insert(ctx,
		serial, mfgDate, nil, 0,
		equipment.StatusSpare, equipment.LocationOnSite, lens,
		nil, "")
	return translate(err, serial, nil, ErrExists)
}

// Get returns the status row of one projector.
func (s *StatusTable) Get(ctx context.Context, serial string) (Status, error) {
	row, err := s.t.Get(ctx, serial)
	if err != nil {
		return Status{}, translate(err, serial, ErrNotFound, nil)
	}
	return statusFromRow(row), nil
}

// Exists reports whether serial has a status row.
func (s *StatusTable) Exists(ctx context.Context, serial string) (bool, error) {
	n, err := s.t.Count(ctx, record.Eq(serialColumn, serial))
	return n > 0, err
}

// SetStatus writes the lifecycle status.
func (s *StatusTable) SetStatus(ctx context.Context, serial string, status equipment.Status) error {
	return s.set(ctx, serial, "status", status)
}

// SetLocation writes the site location.
func (s *StatusTable) SetLocation(ctx context.Context, serial string, location equipment.Location) error {
	return s.set(ctx, serial, "location", location)
}

// SetLens writes the lens type.
func (s *StatusTable) SetLens(ctx context.Context, serial string, lens equipment.Lens) error {
	return s.set(ctx, serial, "lens_type", lens)
}

// SetHours writes the cumulative operating hours.
func (s *StatusTable) SetHours(ctx context.Context, serial string, hours int) error {
	return s.set(ctx, serial, "total_hours", hours)
}

// SetRepairReference points the projector at its most recent repair.
func (s *StatusTable) SetRepairReference(ctx context.Context, serial string, repairID int64) error {
	return s.set(ctx, serial, "repair_id", repairID)
}

// SetErrorRecord overwrites the raw hardware error text. It is a rolling log
// of its own and is never snapshotted.
func (s *StatusTable) SetErrorRecord(ctx context.Context, serial, errorRecord string) error {
	return s.set(ctx, serial, "error_record", errorRecord)
}

// AssignSlot records the slot the projector is mounted in.
func (s *StatusTable) AssignSlot(ctx context.Context, serial string, slot int) error {
	return s.set(ctx, serial, "slot", slot)
}

// ClearSlot marks the projector as not mounted.
func (s *StatusTable) ClearSlot(ctx context.Context, serial string) error {
	return s.set(ctx, serial, "slot", nil)
}

// GetSerialForSlot returns the projector mounted in slot.
//
// Returns:
//   - ErrSlotEmpty: No projector occupies the slot
//   - ErrSlotConflict: Several projectors claim the slot
func (s *StatusTable) GetSerialForSlot(ctx context.Context, slot int) (string, error) {
	row, err := s.t.Find(ctx, record.Eq("slot", slot))
	if err != nil {
		return "", translate(err, fmt.Sprintf("slot %d", slot), ErrSlotEmpty, nil)
	}
	return row.String(serialColumn), nil
}

// RecordHistory snapshots the current status row with date and note.
func (s *StatusTable) RecordHistory(ctx context.Context, serial string, date equipment.Date, note string) error {
	err := s.t.RecordHistory(ctx, date.String(), note, record.Eq(serialColumn, serial))
	return translate(err, serial, ErrNotFound, nil)
}

// History returns the snapshots of one projector, oldest first.
func (s *StatusTable) History(ctx context.Context, serial string) ([]StatusRecord, error) {
	rows, err := s.t.History(ctx, record.Eq(serialColumn, serial))
	if err != nil {
		return nil, err
	}
	out := make([]StatusRecord, len(rows))
	for i, row := range rows {
		out[i] = StatusRecord{
			Status: statusFromRow(row),
			Date:   equipment.StoredDate(row.String(catalog.DateColumn)),
			Note:   row.String(catalog.NoteColumn),
		}
	}
	return out, nil
}

// List returns every projector ordered by serial, optionally only those with
// the given status.
func (s *StatusTable) List(ctx context.Context, only ...equipment.Status) ([]Status, error) {
	var filter []record.Cond
	if len(only) == 1 {
		filter = append(filter, record.Eq("status", only[0]))
	}
	rows, err := s.t.ListAll(ctx, filter...)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		st := statusFromRow(row)
		if len(only) > 1 && !containsStatus(only, st.Status) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *StatusTable) set(ctx context.Context, serial, column string, value any) error {
	err := s.t.SetValue(ctx, serialColumn, serial, column, value)
	return translate(err, serial, ErrNotFound, nil)
}

func containsStatus(list []equipment.Status, s equipment.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func statusFromRow(row record.Row) Status {
	repairID, _ := row.NullInt("repair_id")
	return Status{
		Serial:      row.String(serialColumn),
		MfgDate:     equipment.StoredDate(row.String("mfg_date")),
		Slot:        row.Int("slot"),
		TotalHours:  row.Int("total_hours"),
		Status:      equipment.Status(row.String("status")),
		Location:    equipment.Location(row.String("location")),
		Lens:        equipment.Lens(row.String("lens_type")),
		RepairID:    int64(repairID),
		ErrorRecord: row.String("error_record"),
	}
}
