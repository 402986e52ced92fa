package projector

import (
	"context"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/record"
)

// Position is the fixed wiring behind one mounting slot: the serial switch
// and port the projector's control line is patched into, the render server
// and the display output driving it.
type Position struct {
	Slot         int    `json:"slot"`
	SerialSwitch string `json:"serial_switch"`
	SerialPort   string `json:"serial_port"`
	Server       string `json:"server"`
	Display      string `json:"display"`
}

// PositionDirectory is the slot wiring directory. It describes
// infrastructure rather than equipment state and keeps no history.
type PositionDirectory struct {
	t *record.Table
}

// NewPositionDirectory returns a PositionDirectory issuing statements
// through q.
func NewPositionDirectory(q record.Querier) *PositionDirectory {
	return &PositionDirectory{t: record.New(q, catalog.ProjectorPositions)}
}

// Register adds the wiring for a slot.
func (d *PositionDirectory) Register(ctx context.Context, p Position) error {
	_, err := d.t.Insert(ctx, p.Slot, p.SerialSwitch, p.SerialPort, p.Server, p.Display)
	return translate(err, fmt.Sprintf("slot %d", p.Slot), nil, ErrSlotRegistered)
}

// Lookup returns the wiring for a slot.
func (d *PositionDirectory) Lookup(ctx context.Context, slot int) (Position, error) {
	row, err := d.t.Get(ctx, slot)
	if err != nil {
		return Position{}, translate(err, fmt.Sprintf("slot %d", slot), ErrSlotNotRegistered, nil)
	}
	return positionFromRow(row), nil
}

// List returns every registered slot in slot order.
func (d *PositionDirectory) List(ctx context.Context) ([]Position, error) {
	rows, err := d.t.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Position, len(rows))
	for i, row := range rows {
		out[i] = positionFromRow(row)
	}
	return out, nil
}

func positionFromRow(row record.Row) Position {
	return Position{
		Slot:         row.Int("slot"),
		SerialSwitch: row.String("serial_switch"),
		SerialPort:   row.String("serial_port"),
		Server:       row.String("server"),
		Display:      row.String("display"),
	}
}
