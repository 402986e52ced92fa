package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yurtlab/pjinventory/internal/bulb"
	"github.com/yurtlab/pjinventory/internal/projector"
	"github.com/yurtlab/pjinventory/internal/repair"
)

// AllProjectors selects every projector in ProjectorReport.
const AllProjectors = "*"

// AllBulbs selects every bulb in BulbReport.
const AllBulbs int64 = 0

// InstalledSlot pairs a slot with the projector mounted in it.
type InstalledSlot struct {
	Slot   int    `json:"slot"`
	Serial string `json:"serial"`
}

// ProjectorReport is the current state of one projector with everything
// recorded about it.
type ProjectorReport struct {
	Status   projector.Status           `json:"status"`
	Settings projector.Settings         `json:"settings"`
	Position *projector.Position        `json:"position,omitempty"`
	Bulbs    []bulb.Bulb                `json:"bulbs"`
	Repairs  []repair.Record            `json:"repairs"`
	History  []projector.StatusRecord   `json:"history"`
	Colour   []projector.SettingsRecord `json:"colour_history"`
}

// BulbReport is the current state of one bulb life with its history and the
// repair that last moved it.
type BulbReport struct {
	Bulb    bulb.Bulb      `json:"bulb"`
	History []bulb.Record  `json:"history"`
	Repair  *repair.Record `json:"repair,omitempty"`
}

// SerialForSlot returns the projector mounted in slot.
func (o *Orchestrator) SerialForSlot(ctx context.Context, slot int) (string, error) {
	var serial string
	err := o.query("serial_for_slot", func(s *stores) error {
		var err error
		serial, err = s.status.GetSerialForSlot(ctx, slot)
		return referential(err, projector.ErrSlotEmpty)
	})
	return serial, err
}

// InstalledSlots lists every mounted projector in slot order.
func (o *Orchestrator) InstalledSlots(ctx context.Context) ([]InstalledSlot, error) {
	var out []InstalledSlot
	err := o.query("installed_slots", func(s *stores) error {
		all, err := s.status.List(ctx)
		if err != nil {
			return err
		}
		for _, st := range all {
			if st.Installed() {
				out = append(out, InstalledSlot{Slot: st.Slot, Serial: st.Serial})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, err
}

// Positions lists the registered slot wiring.
func (o *Orchestrator) Positions(ctx context.Context) ([]projector.Position, error) {
	var out []projector.Position
	err := o.query("positions", func(s *stores) (err error) {
		out, err = s.positions.List(ctx)
		return err
	})
	return out, err
}

// ProjectorReport reports one projector, or every projector when serial is
// "" or AllProjectors.
func (o *Orchestrator) ProjectorReport(ctx context.Context, serial string) ([]ProjectorReport, error) {
	var reports []ProjectorReport
	err := o.query("projector_report", func(s *stores) error {
		var statuses []projector.Status
		if serial == "" || serial == AllProjectors {
			all, err := s.status.List(ctx)
			if err != nil {
				return err
			}
			statuses = all
		} else {
			st, err := getProjector(ctx, s, serial)
			if err != nil {
				return err
			}
			statuses = []projector.Status{st}
		}

		for _, st := range statuses {
			r, err := projectorReport(ctx, s, st)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}

func projectorReport(ctx context.Context, s *stores, st projector.Status) (ProjectorReport, error) {
	r := ProjectorReport{Status: st}
	var err error

	if r.Settings, err = s.settings.Get(ctx, st.Serial); err != nil && !errors.Is(err, projector.ErrNotFound) {
		return r, err
	}
	if st.Installed() {
		pos, err := s.positions.Lookup(ctx, st.Slot)
		switch {
		case err == nil:
			r.Position = &pos
		case !errors.Is(err, projector.ErrSlotNotRegistered):
			return r, err
		}
	}
	if r.Bulbs, err = s.bulbs.InstalledIn(ctx, st.Serial); err != nil {
		return r, err
	}
	if r.Repairs, err = s.repairs.ListForProjector(ctx, st.Serial); err != nil {
		return r, err
	}
	if r.History, err = s.status.History(ctx, st.Serial); err != nil {
		return r, err
	}
	if r.Colour, err = s.settings.History(ctx, st.Serial); err != nil {
		return r, err
	}
	return r, nil
}

// BulbReport reports one bulb row by id, or every bulb when id is AllBulbs.
func (o *Orchestrator) BulbReport(ctx context.Context, id int64) ([]BulbReport, error) {
	var reports []BulbReport
	err := o.query("bulb_report", func(s *stores) error {
		var bulbs []bulb.Bulb
		if id == AllBulbs {
			all, err := s.bulbs.List(ctx)
			if err != nil {
				return err
			}
			bulbs = all
		} else {
			b, err := s.bulbs.GetByID(ctx, id)
			if err != nil {
				return referential(err, bulb.ErrNotFound)
			}
			bulbs = []bulb.Bulb{b}
		}

		for _, b := range bulbs {
			r := BulbReport{Bulb: b}
			var err error
			if r.History, err = s.bulbs.History(ctx, b.Serial, b.Life); err != nil {
				return err
			}
			if b.RepairID != 0 {
				rec, err := s.repairs.Get(ctx, b.RepairID)
				if err != nil {
					return fmt.Errorf("bulb %d repair: %w", b.ID, err)
				}
				r.Repair = &rec
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}
