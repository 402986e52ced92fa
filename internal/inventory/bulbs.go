package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/bulb"
	"github.com/yurtlab/pjinventory/internal/equipment"
)

// BulbRef names one life of a bulb.
type BulbRef struct {
	Serial string
	Life   int
}

func (r BulbRef) String() string {
	return fmt.Sprintf("%s life %d", r.Serial, r.Life)
}

func (r BulbRef) validate() error {
	return validate(equipment.ValidateSerial(r.Serial), equipment.ValidateLife(r.Life))
}

// AddBulb records a new spare bulb that is not fitted to any projector.
//
// Returns:
//   - int64: The bulb's row id
//   - ErrBulbExists: The serial and life are already known
func (o *Orchestrator) AddBulb(ctx context.Context, serial string, life int, dateIn equipment.Date) (int64, error) {
	const op = "add_bulb"
	ref := BulbRef{Serial: serial, Life: life}
	if err := validate(ref.validate(), equipment.ValidateDate(dateIn)); err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err := o.run(ctx, op, func(s *stores) error {
		var err error
		id, err = addBulb(ctx, s, ref, dateIn)
		if err != nil {
			return err
		}
		s.emit(bulbEvent(equipment.ActionAdd, ref, equipment.NoProjector, 0, "", dateIn, "", equipment.StatusSpare))
		return nil
	})
	return id, err
}

// ChangeBulb replaces the bulb in a projector. The outgoing bulb is retired
// (broken, not fitted, dated out); the incoming bulb is created as a spare if
// it is new, then fitted. One bulb repair is logged and stamped on the
// projector and on both bulbs.
//
// Returns:
//   - int64: The bulb repair id
//   - ErrReferential: Unknown projector or outgoing bulb
//   - ErrInvalidTransition: A bulb is fitted to a different projector, or
//     both refer to the same bulb
func (o *Orchestrator) ChangeBulb(ctx context.Context, projectorSerial string, out, in BulbRef, technician string, date equipment.Date, note string) (int64, error) {
	const op = "change_bulb"
	tech, err := o.technicianOr(technician)
	if err == nil {
		err = validate(equipment.ValidateSerial(projectorSerial), out.validate(), in.validate(), equipment.ValidateDate(date))
	}
	if err == nil && out == in {
		err = fmt.Errorf("%w: outgoing and incoming bulb are both %s", ErrInvalidTransition, out)
	}
	if err != nil {
		return 0, o.fail(op, err)
	}

	var id int64
	err = o.run(ctx, op, func(s *stores) error {
		if _, err := getProjector(ctx, s, projectorSerial); err != nil {
			return err
		}

		old, err := s.bulbs.Get(ctx, out.Serial, out.Life)
		if err != nil {
			return referential(err, bulb.ErrNotFound)
		}
		if old.Installed() && old.Projector != projectorSerial {
			return fmt.Errorf("%w: %s is fitted to %s, not %s", ErrInvalidTransition, out, old.Projector, projectorSerial)
		}

		fresh, err := s.bulbs.Get(ctx, in.Serial, in.Life)
		switch {
		case errors.Is(err, bulb.ErrNotFound):
			if _, err := addBulb(ctx, s, in, date); err != nil {
				return err
			}
		case err != nil:
			return err
		case fresh.Installed() || fresh.Status != equipment.StatusSpare:
			return fmt.Errorf("%w: %s is %s, not a spare", ErrInvalidTransition, in, fresh.Status)
		}

		if err := retireBulb(ctx, s, out, date, note); err != nil {
			return err
		}
		if err := fitBulb(ctx, s, in, projectorSerial, date, note); err != nil {
			return err
		}

		if err := s.status.RecordHistory(ctx, projectorSerial, date, note); err != nil {
			return err
		}
		id, err = s.repairs.NewRecord(ctx, projectorSerial, equipment.RepairBulb, tech, date, note)
		if err != nil {
			return err
		}
		if err := s.status.SetRepairReference(ctx, projectorSerial, id); err != nil {
			return err
		}
		for _, ref := range []BulbRef{out, in} {
			if err := s.bulbs.SetRepairReference(ctx, ref.Serial, ref.Life, id); err != nil {
				return err
			}
		}

		s.emit(projectorEvent(equipment.RepairBulb, projectorSerial, id, tech, date, note, nil))
		s.emit(bulbEvent(string(equipment.RepairBulb), out, equipment.NoProjector, id, tech, date, note, equipment.StatusBroken))
		s.emit(bulbEvent(string(equipment.RepairBulb), in, projectorSerial, id, tech, date, note, equipment.StatusInUse))
		return nil
	})
	return id, err
}

// ReLampBulb records that a bulb serial has been re-lamped. Its latest life
// must not be in use. A new spare row is added with the next life; the old
// row keeps its final status, projector and hours.
//
// Returns:
//   - bulb.Bulb: The new row
//   - ErrReferential: The serial has never been recorded
//   - ErrInvalidTransition: The latest life is still in use
func (o *Orchestrator) ReLampBulb(ctx context.Context, serial string, date equipment.Date) (bulb.Bulb, error) {
	const op = "relamp_bulb"
	if err := validate(equipment.ValidateSerial(serial), equipment.ValidateDate(date)); err != nil {
		return bulb.Bulb{}, o.fail(op, err)
	}

	var relamped bulb.Bulb
	err := o.run(ctx, op, func(s *stores) error {
		life, err := s.bulbs.LatestLife(ctx, serial)
		if err != nil {
			return referential(err, bulb.ErrNotFound)
		}
		current, err := s.bulbs.Get(ctx, serial, life)
		if err != nil {
			return err
		}
		if current.Status == equipment.StatusInUse || current.Installed() {
			return fmt.Errorf("%w: %s life %d is fitted to %s", ErrInvalidTransition, serial, life, current.Projector)
		}

		next := BulbRef{Serial: serial, Life: life + 1}
		id, err := addBulb(ctx, s, next, date)
		if err != nil {
			return err
		}
		if relamped, err = s.bulbs.GetByID(ctx, id); err != nil {
			return err
		}
		s.emit(bulbEvent(equipment.ActionReLamp, next, equipment.NoProjector, 0, "", date, "", equipment.StatusSpare))
		return nil
	})
	return relamped, err
}

func addBulb(ctx context.Context, s *stores, ref BulbRef, dateIn equipment.Date) (int64, error) {
	id, err := s.bulbs.Add(ctx, ref.Serial, ref.Life, dateIn)
	if errors.Is(err, bulb.ErrExists) {
		return 0, fmt.Errorf("%w: %s", ErrBulbExists, ref)
	}
	return id, err
}

func retireBulb(ctx context.Context, s *stores, ref BulbRef, date equipment.Date, note string) error {
	if err := s.bulbs.RecordHistory(ctx, ref.Serial, ref.Life, date, note); err != nil {
		return err
	}
	if err := s.bulbs.SetStatus(ctx, ref.Serial, ref.Life, equipment.StatusBroken); err != nil {
		return err
	}
	if err := s.bulbs.SetInstalledIn(ctx, ref.Serial, ref.Life, equipment.NoProjector); err != nil {
		return err
	}
	return s.bulbs.SetDateOut(ctx, ref.Serial, ref.Life, date)
}

func fitBulb(ctx context.Context, s *stores, ref BulbRef, projectorSerial string, date equipment.Date, note string) error {
	if err := s.bulbs.RecordHistory(ctx, ref.Serial, ref.Life, date, note); err != nil {
		return err
	}
	if err := s.bulbs.SetStatus(ctx, ref.Serial, ref.Life, equipment.StatusInUse); err != nil {
		return err
	}
	return s.bulbs.SetInstalledIn(ctx, ref.Serial, ref.Life, projectorSerial)
}

func bulbEvent(action string, ref BulbRef, projectorSerial string, repairID int64, tech string, date equipment.Date, note string, status equipment.Status) equipment.Event {
	return equipment.Event{
		Kind:       equipment.EventBulb,
		Action:     action,
		Serial:     ref.Serial,
		Life:       ref.Life,
		Projector:  projectorSerial,
		Status:     status,
		RepairID:   repairID,
		Technician: tech,
		Date:       date,
		Note:       note,
	}
}
