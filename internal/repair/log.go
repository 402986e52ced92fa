// Package repair is the append-only repair log. Each entry records one
// action taken on a projector; its id is stamped onto the projector and bulb
// rows the action touched.
package repair

import (
	"context"
	"errors"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/record"
)

// ErrNotFound is returned when a repair id has no entry.
var ErrNotFound = errors.New("repair: not found")

// Record is one repair log entry.
type Record struct {
	ID         int64                `json:"id"`
	Serial     string               `json:"projector_serial"`
	Type       equipment.RepairType `json:"type"`
	Technician string               `json:"technician"`
	Date       equipment.Date       `json:"date"`
	Note       string               `json:"note"`
}

// Log manages projector_repairs.
type Log struct {
	t *record.Table
}

// NewLog returns a Log issuing statements through q.
func NewLog(q record.Querier) *Log {
	return &Log{t: record.New(q, catalog.ProjectorRepairs)}
}

// NewRecord appends an entry and returns its id. The projector must exist.
func (l *Log) NewRecord(ctx context.Context, serial string, repairType equipment.RepairType, technician string, date equipment.Date, note string) (int64, error) {
	id, err := l.t.Insert(ctx, serial, repairType, technician, date, note)
	if err != nil {
		return 0, fmt.Errorf("logging %s repair for %s: %w", repairType, serial, err)
	}
	return id, nil
}

// NextID returns the id the next entry will receive.
func (l *Log) NextID(ctx context.Context) (int64, error) {
	return l.t.NextKey(ctx)
}

// Get returns one entry.
func (l *Log) Get(ctx context.Context, id int64) (Record, error) {
	row, err := l.t.Get(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return Record{}, err
	}
	return fromRow(row), nil
}

// ListForProjector returns the entries of one projector, oldest first.
func (l *Log) ListForProjector(ctx context.Context, serial string) ([]Record, error) {
	return l.list(ctx, record.Eq("projector_serial", serial))
}

// List returns every entry, oldest first.
func (l *Log) List(ctx context.Context) ([]Record, error) {
	return l.list(ctx)
}

func (l *Log) list(ctx context.Context, filter ...record.Cond) ([]Record, error) {
	rows, err := l.t.ListAll(ctx, filter...)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	return out, nil
}

func fromRow(row record.Row) Record {
	id, _ := row.NullInt("repair_id")
	return Record{
		ID:         int64(id),
		Serial:     row.String("projector_serial"),
		Type:       equipment.RepairType(row.String("repair_type")),
		Technician: row.String("technician"),
		Date:       equipment.StoredDate(row.String("repair_date")),
		Note:       row.String("note"),
	}
}
