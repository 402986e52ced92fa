package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yurtlab/pjinventory/internal/bulb"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/projector"
)

// Hardware commands. A reply ends with the requested value.
const (
	cmdErrorRecord = "op prerr"
	cmdPowerState  = "op status.check ?"
	cmdTotalHours  = "op total.hours ?"
	cmdLampHours   = "op lamp.hours ?"

	// powerStateOn is the last field of the power state reply when the
	// projector is on and its hours and colour can be read.
	powerStateOn = "2"

	// errorRecordSeparator splits the entries of an error record reply;
	// only the last entry is kept.
	errorRecordSeparator = "##"

	telemetryNote = "telemetry"
)

// colourCommands are sent in Colour field order.
var colourCommands = [...]string{
	"op red.offset ?",
	"op green.offset ?",
	"op blue.offset ?",
	"op red.gain ?",
	"op green.gain ?",
	"op blue.gain ?",
	"op color.temp ?",
	"op gamma ?",
}

// Telemetry is what RecordTelemetry read from one projector.
type Telemetry struct {
	Slot        int
	Serial      string
	ErrorRecord string
	PoweredOn   bool
	TotalHours  int
	LampHours   int
	Colour      projector.Colour

	// Bulb is the life the lamp hours were stored on; zero when no bulb is
	// recorded as fitted.
	Bulb BulbRef
}

// RecordTelemetry reads the error record, hours and colour settings of the
// projector in slot and stores them.
//
// The error record is stored whenever it is read. Hours and colour are only
// read when the projector reports that it is powered on; otherwise the
// partial Telemetry is returned with ErrPoweredOff. Hardware is queried
// before the write transaction starts.
func (o *Orchestrator) RecordTelemetry(ctx context.Context, slot int) (Telemetry, error) {
	const op = "record_telemetry"
	if o.transport == nil {
		return Telemetry{}, o.fail(op, ErrNoTransport)
	}
	if err := equipment.ValidateSlot(slot); err != nil {
		return Telemetry{}, o.fail(op, err)
	}

	var (
		pos projector.Position
		t   = Telemetry{Slot: slot}
	)
	err := o.read(func(s *stores) error {
		var err error
		if pos, err = s.positions.Lookup(ctx, slot); err != nil {
			return referential(err, projector.ErrSlotNotRegistered)
		}
		if t.Serial, err = s.status.GetSerialForSlot(ctx, slot); err != nil {
			return referential(err, projector.ErrSlotEmpty)
		}
		return nil
	})
	if err != nil {
		return t, o.fail(op, err)
	}

	send := func(command string) (string, error) {
		reply, err := o.transport.SendCommand(ctx, pos.SerialSwitch, pos.SerialPort, command)
		if err != nil {
			return "", fmt.Errorf("slot %d %q: %w", slot, command, err)
		}
		return reply, nil
	}

	reply, err := send(cmdErrorRecord)
	if err != nil {
		return t, o.fail(op, err)
	}
	t.ErrorRecord = lastErrorEntry(reply)

	reply, err = send(cmdPowerState)
	if err != nil {
		return t, o.fail(op, err)
	}
	fields := strings.Fields(reply)
	t.PoweredOn = len(fields) > 0 && fields[len(fields)-1] == powerStateOn

	if t.PoweredOn {
		if err := readHours(send, &t); err != nil {
			return t, o.fail(op, err)
		}
	}

	date := o.Today()
	err = o.run(ctx, op, func(s *stores) error {
		if t.ErrorRecord != "" {
			if err := s.status.SetErrorRecord(ctx, t.Serial, t.ErrorRecord); err != nil {
				return err
			}
		}
		if !t.PoweredOn {
			return nil
		}

		if err := setProjectorHours(ctx, s, t.Serial, t.TotalHours, date, telemetryNote); err != nil {
			return err
		}
		fitted, err := fittedBulb(ctx, s, t.Serial)
		switch {
		case err == nil:
			if err := setLampHours(ctx, s, fitted, t.Serial, t.LampHours, date, telemetryNote); err != nil {
				return err
			}
			t.Bulb = BulbRef{Serial: fitted.Serial, Life: fitted.Life}
		case isReferential(err):
			o.logger.Warn("lamp hours read but no bulb recorded", "serial", t.Serial, "slot", slot)
		default:
			return err
		}
		if err := s.settings.SetColour(ctx, t.Serial, t.Colour, date, telemetryNote); err != nil {
			return err
		}

		s.emit(equipment.Event{
			Kind:   equipment.EventProjector,
			Action: equipment.ActionTelemetry,
			Serial: t.Serial,
			Slot:   slot,
			Date:   date,
		})
		at := o.now()
		s.reading(func(sink TelemetrySink) {
			sink.WriteProjectorHours(t.Serial, slot, t.TotalHours, at)
			sink.WriteColour(t.Serial, t.Colour.Fields(), at)
			if t.Bulb.Serial != "" {
				sink.WriteLampHours(t.Bulb.Serial, t.Bulb.Life, t.Serial, t.LampHours, at)
			}
		})
		return nil
	})
	if err != nil {
		return t, err
	}

	o.logger.Info("telemetry recorded", "slot", slot, "serial", t.Serial, "powered_on", t.PoweredOn)
	if !t.PoweredOn {
		return t, fmt.Errorf("%w: slot %d (%s)", ErrPoweredOff, slot, t.Serial)
	}
	return t, nil
}

func readHours(send func(string) (string, error), t *Telemetry) error {
	readInt := func(command string) (int, error) {
		reply, err := send(command)
		if err != nil {
			return 0, err
		}
		return parseReplyInt(command, reply)
	}

	var err error
	if t.TotalHours, err = readInt(cmdTotalHours); err != nil {
		return err
	}
	if t.LampHours, err = readInt(cmdLampHours); err != nil {
		return err
	}

	var values [len(colourCommands)]int
	for i, command := range colourCommands {
		if values[i], err = readInt(command); err != nil {
			return err
		}
	}
	t.Colour = projector.Colour{
		RedOffset:   values[0],
		GreenOffset: values[1],
		BlueOffset:  values[2],
		RedGain:     values[3],
		GreenGain:   values[4],
		BlueGain:    values[5],
		ColorTemp:   values[6],
		Gamma:       values[7],
	}
	return nil
}

// RecordProjectorHours stores a projector's cumulative operating hours,
// snapshotting the previous value.
func (o *Orchestrator) RecordProjectorHours(ctx context.Context, serial string, hours int, date equipment.Date, note string) error {
	const op = "record_projector_hours"
	if err := validate(equipment.ValidateSerial(serial), equipment.ValidateHours(hours), equipment.ValidateDate(date)); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		st, err := getProjector(ctx, s, serial)
		if err != nil {
			return err
		}
		if err := setProjectorHours(ctx, s, serial, hours, date, note); err != nil {
			return err
		}
		at := o.now()
		s.reading(func(sink TelemetrySink) {
			sink.WriteProjectorHours(serial, st.Slot, hours, at)
		})
		return nil
	})
}

// RecordLampHours stores the hours of the bulb fitted to a projector,
// snapshotting the previous value.
//
// Returns:
//   - ErrReferential: Unknown projector, or no bulb recorded as fitted
//   - ErrInvalidTransition: Several bulbs are recorded as fitted
func (o *Orchestrator) RecordLampHours(ctx context.Context, projectorSerial string, hours int, date equipment.Date, note string) error {
	const op = "record_lamp_hours"
	if err := validate(equipment.ValidateSerial(projectorSerial), equipment.ValidateHours(hours), equipment.ValidateDate(date)); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		if _, err := getProjector(ctx, s, projectorSerial); err != nil {
			return err
		}
		fitted, err := fittedBulb(ctx, s, projectorSerial)
		if err != nil {
			return err
		}
		if err := setLampHours(ctx, s, fitted, projectorSerial, hours, date, note); err != nil {
			return err
		}
		at := o.now()
		s.reading(func(sink TelemetrySink) {
			sink.WriteLampHours(fitted.Serial, fitted.Life, projectorSerial, hours, at)
		})
		return nil
	})
}

// RecordErrorRecord overwrites a projector's error record. The record is a
// rolling log of its own and is not snapshotted.
func (o *Orchestrator) RecordErrorRecord(ctx context.Context, serial, errorRecord string) error {
	const op = "record_error_record"
	if err := equipment.ValidateSerial(serial); err != nil {
		return o.fail(op, err)
	}

	return o.run(ctx, op, func(s *stores) error {
		return referential(s.status.SetErrorRecord(ctx, serial, errorRecord), projector.ErrNotFound)
	})
}

func setProjectorHours(ctx context.Context, s *stores, serial string, hours int, date equipment.Date, note string) error {
	if err := s.status.RecordHistory(ctx, serial, date, note); err != nil {
		return referential(err, projector.ErrNotFound)
	}
	return s.status.SetHours(ctx, serial, hours)
}

func setLampHours(ctx context.Context, s *stores, b bulb.Bulb, projectorSerial string, hours int, date equipment.Date, note string) error {
	if err := s.bulbs.RecordHistory(ctx, b.Serial, b.Life, date, note); err != nil {
		return err
	}
	return s.bulbs.SetLampHours(ctx, b.Serial, b.Life, hours)
}

// fittedBulb returns the one bulb recorded as fitted to a projector.
func fittedBulb(ctx context.Context, s *stores, projectorSerial string) (bulb.Bulb, error) {
	fitted, err := s.bulbs.InstalledIn(ctx, projectorSerial)
	if err != nil {
		return bulb.Bulb{}, err
	}
	switch len(fitted) {
	case 0:
		return bulb.Bulb{}, fmt.Errorf("%w: no bulb fitted to %s", ErrReferential, projectorSerial)
	case 1:
		return fitted[0], nil
	default:
		return bulb.Bulb{}, fmt.Errorf("%w: %d bulbs recorded in %s", ErrInvalidTransition, len(fitted), projectorSerial)
	}
}

func isReferential(err error) bool {
	return err != nil && result(err) == resultReferential
}

// lastErrorEntry returns the last "##"-separated entry of an error record
// reply, or "" when it carries nothing.
func lastErrorEntry(reply string) string {
	entries := strings.Split(reply, errorRecordSeparator)
	last := strings.TrimSpace(entries[len(entries)-1])
	if len(last) <= 1 {
		return ""
	}
	return last
}

// parseReplyInt returns the first whitespace-separated integer in reply.
func parseReplyInt(command, reply string) (int, error) {
	for _, field := range strings.Fields(reply) {
		if n, err := strconv.Atoi(field); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %q answered %q", ErrBadResponse, command, strings.TrimSpace(reply))
}

// MaxSelectedSlot is the highest slot number a selection may name.
const MaxSelectedSlot = 9999

// ParseSlots expands a slot selection such as "3,4,6-9" into sorted,
// distinct slot numbers. "none" and "" select nothing. Numbers above
// MaxSelectedSlot are rejected.
func ParseSlots(selection string) ([]int, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" || selection == "none" {
		return nil, nil
	}

	seen := make(map[int]struct{})
	var invalid []string
	for _, token := range strings.Split(selection, ",") {
		token = strings.TrimSpace(token)
		if n, err := strconv.Atoi(token); err == nil && inSelectableRange(n) {
			seen[n] = struct{}{}
			continue
		}
		first, last, ok := parseRange(token)
		if !ok {
			invalid = append(invalid, token)
			continue
		}
		for n := first; n <= last; n++ {
			seen[n] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: slot selection %q has bad entries %s",
			equipment.ErrInvalid, selection, strings.Join(invalid, ", "))
	}

	slots := make([]int, 0, len(seen))
	for n := range seen {
		slots = append(slots, n)
	}
	sort.Ints(slots)
	return slots, nil
}

func parseRange(token string) (first, last int, ok bool) {
	lo, hi, found := strings.Cut(token, "-")
	if !found {
		return 0, 0, false
	}
	a, errA := strconv.Atoi(strings.TrimSpace(lo))
	b, errB := strconv.Atoi(strings.TrimSpace(hi))
	if errA != nil || errB != nil || !inSelectableRange(a) || !inSelectableRange(b) {
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}

func inSelectableRange(n int) bool {
	return n >= 1 && n <= MaxSelectedSlot
}
