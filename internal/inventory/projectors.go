package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/projector"
)

// AddProjector registers a new projector: spare, on site, zero hours, with
// zeroed colour settings.
//
// Returns:
//   - equipment.ErrInvalid: Bad serial, date or lens
//   - ErrProjectorExists: The serial is already known
func (o *Orchestrator) AddProjector(ctx context.Context, serial string, mfgDate equipment.Date, lens equipment.Lens) error {
	const op = "add_projector"
	if err := validate(
		equipment.ValidateSerial(serial),
		equipment.ValidateDate(mfgDate),
		equipment.ValidateLens(lens),
	); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		if err := s.status.Add(ctx, serial, mfgDate, lens); err != nil {
			if errors.Is(err, projector.ErrExists) {
				return fmt.Errorf("%w: %s", ErrProjectorExists, serial)
			}
			return err
		}
		if err := s.settings.Add(ctx, serial, lens); err != nil {
			if errors.Is(err, projector.ErrExists) {
				return fmt.Errorf("%w: %s has orphaned settings", ErrProjectorExists, serial)
			}
			return err
		}
		s.emit(equipment.Event{
			Kind:     equipment.EventProjector,
			Action:   equipment.ActionAdd,
			Serial:   serial,
			Status:   equipment.StatusSpare,
			Location: equipment.LocationOnSite,
			Date:     mfgDate,
		})
		return nil
	})
}

// Install mounts a spare, on-site projector in a registered, empty slot.
//
// Returns:
//   - int64: The install repair id
//   - ErrReferential: Unknown projector or unregistered slot
//   - ErrInvalidTransition: Projector not spare and on site, or slot occupied
func (o *Orchestrator) Install(ctx context.Context, serial string, slot int, technician string, date equipment.Date, note string) (int64, error) {
	const op = "install"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateSlot(slot), equipment.ValidateDate(date))
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		if err := requireInstallable(ctx, s, st, slot); err != nil {
			return err
		}
		id, err = install(ctx, s, serial, slot, tech, date, note)
		return err
	})
	return id, err
}

// Uninstall takes a mounted projector out of its slot and leaves it spare or
// broken. A projector marked broken by Repair while still mounted can be
// uninstalled too.
//
// Returns:
//   - int64: The uninstall repair id
//   - ErrReferential: Unknown projector
//   - ErrInvalidTransition: Projector not mounted, or newStatus is in use
func (o *Orchestrator) Uninstall(ctx context.Context, serial string, newStatus equipment.Status, technician string, date equipment.Date, note string) (int64, error) {
	const op = "uninstall"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateStatus(newStatus), equipment.ValidateDate(date))
	}
	if err == nil && newStatus == equipment.StatusInUse {
		err = fmt.Errorf("%w: cannot uninstall to %q", ErrInvalidTransition, newStatus)
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		if !st.Installed() {
			return fmt.Errorf("%w: %s is not mounted", ErrInvalidTransition, serial)
		}
		id, err = uninstall(ctx, s, st, newStatus, tech, date, note)
		return err
	})
	return id, err
}

// Ship sends a projector off site for repair. It is marked broken and, if
// it was mounted, its slot is cleared.
func (o *Orchestrator) Ship(ctx context.Context, serial, technician string, date equipment.Date, note string) (int64, error) {
	const op = "ship"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateDate(date))
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		id, err = transition(ctx, s, serial, equipment.RepairShip, tech, date, note, func() error {
			if err := s.status.SetLocation(ctx, serial, equipment.LocationOffSite); err != nil {
				return err
			}
			if err := s.status.SetStatus(ctx, serial, equipment.StatusBroken); err != nil {
				return err
			}
			if st.Installed() {
				return s.status.ClearSlot(ctx, serial)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.emit(projectorEvent(equipment.RepairShip, serial, id, tech, date, note, func(e *equipment.Event) {
			e.Slot = st.Slot
			e.Status = equipment.StatusBroken
			e.Location = equipment.LocationOffSite
		}))
		return nil
	})
	return id, err
}

// Receive brings an off-site projector back on site as a spare.
func (o *Orchestrator) Receive(ctx context.Context, serial, technician string, date equipment.Date, note string) (int64, error) {
	const op = "receive"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateDate(date))
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		if st.Location != equipment.LocationOffSite {
			return fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, serial, st.Location)
		}
		id, err = transition(ctx, s, serial, equipment.RepairReceived, tech, date, note, func() error {
			if err := s.status.SetLocation(ctx, serial, equipment.LocationOnSite); err != nil {
				return err
			}
			return s.status.SetStatus(ctx, serial, equipment.StatusSpare)
		})
		if err != nil {
			return err
		}
		s.emit(projectorEvent(equipment.RepairReceived, serial, id, tech, date, note, func(e *equipment.Event) {
			e.Status = equipment.StatusSpare
			e.Location = equipment.LocationOnSite
		}))
		return nil
	})
	return id, err
}

// Repair logs a repair of any type and optionally changes the projector's
// status. Pass "" as newStatus to leave it unchanged. A projector only
// becomes in use through Install, so newStatus may not be in use.
func (o *Orchestrator) Repair(ctx context.Context, serial string, repairType equipment.RepairType, newStatus equipment.Status, technician string, date equipment.Date, note string) (int64, error) {
	const op = "repair"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateRepairType(repairType), equipment.ValidateDate(date))
	}
	if err == nil && newStatus != "" {
		err = equipment.ValidateStatus(newStatus)
		if err == nil && newStatus == equipment.StatusInUse {
			err = fmt.Errorf("%w: use install to put a projector in use", ErrInvalidTransition)
		}
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		id, err = transition(ctx, s, serial, repairType, tech, date, note, func() error {
			if newStatus == "" {
				return nil
			}
			return s.status.SetStatus(ctx, serial, newStatus)
		})
		if err != nil {
			return err
		}
		status := st.Status
		if newStatus != "" {
			status = newStatus
		}
		s.emit(projectorEvent(repairType, serial, id, tech, date, note, func(e *equipment.Event) {
			e.Slot = st.Slot
			e.Status = status
			e.Location = st.Location
		}))
		return nil
	})
	return id, err
}

// Swap replaces the projector mounted in slot with a spare one. The outgoing
// projector is left with outStatus, normally broken, whatever status it had
// while mounted.
//
// Returns:
//   - outID, inID: The uninstall and install repair ids
//   - ErrReferential: Unknown projector or unregistered slot
//   - ErrInvalidTransition: outgoing is not the projector in slot, or
//     incoming is not spare and on site
func (o *Orchestrator) Swap(ctx context.Context, slot int, outgoing, incoming string, outStatus equipment.Status, technician string, date equipment.Date, note string) (outID, inID int64, err error) {
	const op = "swap"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(
			equipment.ValidateSlot(slot),
			equipment.ValidateSerial(outgoing),
			equipment.ValidateSerial(incoming),
			equipment.ValidateStatus(outStatus),
			equipment.ValidateDate(date),
		)
	}
	if err == nil && outgoing == incoming {
		err = fmt.Errorf("%w: cannot swap %s with itself", ErrInvalidTransition, outgoing)
	}
	if err == nil && outStatus == equipment.StatusInUse {
		err = fmt.Errorf("%w: outgoing projector cannot stay in use", ErrInvalidTransition)
	}
	if err != nil {
		return 0, 0, o.fail(op, err)
	}

	err = o.run(ctx, op, func(s *stores) error {
		out, err := getProjector(ctx, s, outgoing)
		if err != nil {
			return err
		}
		in, err := getProjector(ctx, s, incoming)
		if err != nil {
			return err
		}
		if out.Slot != slot {
			return fmt.Errorf("%w: %s is not mounted at slot %d", ErrInvalidTransition, outgoing, slot)
		}
		if in.Status != equipment.StatusSpare || in.Location != equipment.LocationOnSite {
			return fmt.Errorf("%w: %s is %s and %s, not a spare on site", ErrInvalidTransition, incoming, in.Status, in.Location)
		}

		if outID, err = uninstall(ctx, s, out, outStatus, tech, date, note); err != nil {
			return err
		}
		if err := requireInstallable(ctx, s, in, slot); err != nil {
			return err
		}
		inID, err = install(ctx, s, incoming, slot, tech, date, note)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return outID, inID, nil
}

// ChangeLens fits a different lens. Both the status and the settings rows
// are snapshotted before the change.
func (o *Orchestrator) ChangeLens(ctx context.Context, serial string, lens equipment.Lens, technician string, date equipment.Date, note string) (int64, error) {
	const op = "change_lens"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(serial), equipment.ValidateLens(lens), equipment.ValidateDate(date))
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		if err := s.settings.RecordHistory(ctx, serial, date, note); err != nil {
			return err
		}
		if err := s.settings.SetLens(ctx, serial, lens); err != nil {
			return err
		}
		id, err = transition(ctx, s, serial, equipment.RepairLens, tech, date, note, func() error {
			return s.status.SetLens(ctx, serial, lens)
		})
		if err != nil {
			return err
		}
		s.emit(projectorEvent(equipment.RepairLens, serial, id, tech, date, note, func(e *equipment.Event) {
			e.Slot = st.Slot
			e.Status = st.Status
			e.Location = st.Location
		}))
		return nil
	})
	return id, err
}

// SetSettings replaces a projector's colour settings, snapshotting the old
// values with date and note.
func (o *Orchestrator) SetSettings(ctx context.Context, serial string, colour projector.Colour, date equipment.Date, note string) error {
	const op = "set_settings"
	if err := validate(equipment.ValidateSerial(serial), equipment.ValidateDate(date)); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		if err := s.settings.SetColour(ctx, serial, colour, date, note); err != nil {
			return referential(err, projector.ErrNotFound)
		}
		s.emit(equipment.Event{
			Kind:   equipment.EventProjector,
			Action: equipment.ActionSettings,
			Serial: serial,
			Date:   date,
			Note:   note,
		})
		s.reading(func(sink TelemetrySink) {
			sink.WriteColour(serial, colour.Fields(), o.now())
		})
		return nil
	})
}

// RecordSettingsHistory snapshots a projector's colour settings without
// changing them.
func (o *Orchestrator) RecordSettingsHistory(ctx context.Context, serial string, date equipment.Date, note string) error {
	const op = "record_settings_history"
	if err := validate(equipment.ValidateSerial(serial), equipment.ValidateDate(date)); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		return referential(s.settings.RecordHistory(ctx, serial, date, note), projector.ErrNotFound)
	})
}

// RegisterPosition records the wiring of a mounting slot.
func (o *Orchestrator) RegisterPosition(ctx context.Context, p projector.Position) error {
	const op = "register_position"
	if err := equipment.ValidateSlot(p.Slot); err != nil {
		return o.fail(op, err)
	}
	if p.SerialSwitch == "" || p.SerialPort == "" {
		return o.fail(op, fmt.Errorf("%w: slot %d needs a serial switch and port", equipment.ErrInvalid, p.Slot))
	}

	return o.run(ctx, op, func(s *stores) error {
		return s.positions.Register(ctx, p)
	})
}

// transition snapshots the projector's status row, applies the field
// writes, logs one repair and stamps its id on the projector.
func transition(ctx context.Context, s *stores, serial string, repairType equipment.RepairType, tech string, date equipment.Date, note string, apply func() error) (int64, error) {
	if err := s.status.RecordHistory(ctx, serial, date, note); err != nil {
		return 0, referential(err, projector.ErrNotFound)
	}
	if err := apply(); err != nil {
		return 0, err
	}
	id, err := s.repairs.NewRecord(ctx, serial, repairType, tech, date, note)
	if err != nil {
		return 0, err
	}
	if err := s.status.SetRepairReference(ctx, serial, id); err != nil {
		return 0, err
	}
	return id, nil
}

func install(ctx context.Context, s *stores, serial string, slot int, tech string, date equipment.Date, note string) (int64, error) {
	id, err := transition(ctx, s, serial, equipment.RepairInstall, tech, date, note, func() error {
		if err := s.status.SetStatus(ctx, serial, equipment.StatusInUse); err != nil {
			return err
		}
		if err := s.status.SetLocation(ctx, serial, equipment.LocationOnSite); err != nil {
			return err
		}
		return s.status.AssignSlot(ctx, serial, slot)
	})
	if err != nil {
		return 0, err
	}
	s.emit(projectorEvent(equipment.RepairInstall, serial, id, tech, date, note, func(e *equipment.Event) {
		e.Slot = slot
		e.Status = equipment.StatusInUse
		e.Location = equipment.LocationOnSite
	}))
	return id, nil
}

func uninstall(ctx context.Context, s *stores, st projector.Status, newStatus equipment.Status, tech string, date equipment.Date, note string) (int64, error) {
	id, err := transition(ctx, s, st.Serial, equipment.RepairUninstall, tech, date, note, func() error {
		if err := s.status.SetStatus(ctx, st.Serial, newStatus); err != nil {
			return err
		}
		return s.status.ClearSlot(ctx, st.Serial)
	})
	if err != nil {
		return 0, err
	}
	s.emit(projectorEvent(equipment.RepairUninstall, st.Serial, id, tech, date, note, func(e *equipment.Event) {
		e.Slot = st.Slot
		e.Status = newStatus
		e.Location = st.Location
	}))
	return id, nil
}

// requireInstallable checks that st can be mounted in slot.
func requireInstallable(ctx context.Context, s *stores, st projector.Status, slot int) error {
	if st.Status != equipment.StatusSpare || st.Location != equipment.LocationOnSite {
		return fmt.Errorf("%w: %s is %s and %s, not a spare on site", ErrInvalidTransition, st.Serial, st.Status, st.Location)
	}
	if _, err := s.positions.Lookup(ctx, slot); err != nil {
		return referential(err, projector.ErrSlotNotRegistered)
	}
	occupant, err := s.status.GetSerialForSlot(ctx, slot)
	switch {
	case errors.Is(err, projector.ErrSlotEmpty):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: slot %d is occupied by %s", ErrInvalidTransition, slot, occupant)
	}
}

func getProjector(ctx context.Context, s *stores, serial string) (projector.Status, error) {
	st, err := s.status.Get(ctx, serial)
	if err != nil {
		return projector.Status{}, referential(err, projector.ErrNotFound)
	}
	return st, nil
}

// referential wraps err with ErrReferential when it matches missing.
func referential(err, missing error) error {
	if err != nil && errors.Is(err, missing) {
		return fmt.Errorf("%w: %w", ErrReferential, err)
	}
	return err
}

func projectorEvent(action equipment.RepairType, serial string, repairID int64, tech string, date equipment.Date, note string, fill func(*equipment.Event)) equipment.Event {
	e := equipment.Event{
		Kind:       equipment.EventProjector,
		Action:     string(action),
		Serial:     serial,
		RepairID:   repairID,
		Technician: tech,
		Date:       date,
		Note:       note,
	}
	if fill != nil {
		fill(&e)
	}
	return e
}
