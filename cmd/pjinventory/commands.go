package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/inventory"
	"github.com/yurtlab/pjinventory/internal/projector"
)

// changeOptions are the flags every write command accepts ahead of its
// arguments.
type changeOptions struct {
	date       equipment.Date
	technician string
	note       string
}

// writeCommand is a lifecycle operation run from the command line. run
// returns the line printed on success.
type writeCommand struct {
	args     string
	min, max int
	run      func(ctx context.Context, inv *inventory.Orchestrator, opts changeOptions, args []string) (string, error)
}

var writeCommands = map[string]writeCommand{
	"add-position":  {"<slot> <switch> <port> [server] [display]", 3, 5, addPosition},
	"add-projector": {"<serial> <mfg-date> <lens>", 3, 3, addProjector},
	"install":       {"<serial> <slot>", 2, 2, install},
	"uninstall":     {"<serial> <spare|broken>", 2, 2, uninstall},
	"ship":          {"<serial>", 1, 1, ship},
	"receive":       {"<serial>", 1, 1, receive},
	"repair":        {"<serial> <type> [status]", 2, 3, repairProjector},
	"swap":          {"<slot> <outgoing> <incoming> [outgoing-status]", 3, 4, swap},
	"change-lens":   {"<serial> <lens>", 2, 2, changeLens},
	"add-bulb":      {"<serial> [life]", 1, 2, addBulb},
	"change-bulb":   {"<projector> <outgoing[:life]> <incoming[:life]>", 3, 3, changeBulb},
	"relamp":        {"<serial>", 1, 1, relamp},
	"hours":         {"<serial> <hours>", 2, 2, projectorHours},
	"lamp-hours":    {"<projector> <hours>", 2, 2, lampHours},
}

// runWrite parses the change flags and arguments of a write command and
// applies it.
func runWrite(ctx context.Context, inv *inventory.Orchestrator, name string, args []string, stdout io.Writer) error {
	cmd := writeCommands[name]
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	date := flags.String("date", "", "date of the change (YYYY-MM-DD, default today)")
	technician := flags.String("tech", "", "technician (default site.technician)")
	note := flags.String("note", "", "free-text note")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, name, err)
	}
	if n := flags.NArg(); n < cmd.min || n > cmd.max {
		return fmt.Errorf("%w: %s [-date d] [-tech name] [-note text] %s", errUsage, name, cmd.args)
	}

	opts := changeOptions{date: inv.Today(), technician: *technician, note: *note}
	if *date != "" {
		d, err := equipment.ParseDate(*date)
		if err != nil {
			return err
		}
		opts.date = d
	}

	line, err := cmd.run(ctx, inv, opts, flags.Args())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s: %s\n", name, line)
	return err
}

func addPosition(ctx context.Context, inv *inventory.Orchestrator, _ changeOptions, args []string) (string, error) {
	slot, err := parseInt("slot", args[0])
	if err != nil {
		return "", err
	}
	p := projector.Position{Slot: slot, SerialSwitch: args[1], SerialPort: args[2]}
	if len(args) > 3 {
		p.Server = args[3]
	}
	if len(args) > 4 {
		p.Display = args[4]
	}
	if err := inv.RegisterPosition(ctx, p); err != nil {
		return "", err
	}
	return fmt.Sprintf("slot %d on %s port %s", p.Slot, p.SerialSwitch, p.SerialPort), nil
}

func addProjector(ctx context.Context, inv *inventory.Orchestrator, _ changeOptions, args []string) (string, error) {
	mfg, err := equipment.ParseDate(args[1])
	if err != nil {
		return "", err
	}
	if err := inv.AddProjector(ctx, args[0], mfg, equipment.Lens(args[2])); err != nil {
		return "", err
	}
	return "added projector " + args[0], nil
}

func install(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	slot, err := parseInt("slot", args[1])
	if err != nil {
		return "", err
	}
	return repairLine(inv.Install(ctx, args[0], slot, o.technician, o.date, o.note))
}

func uninstall(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	return repairLine(inv.Uninstall(ctx, args[0], equipment.Status(args[1]), o.technician, o.date, o.note))
}

func ship(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	return repairLine(inv.Ship(ctx, args[0], o.technician, o.date, o.note))
}

func receive(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	return repairLine(inv.Receive(ctx, args[0], o.technician, o.date, o.note))
}

// repairProjector logs a repair; an optional third argument sets the status.
func repairProjector(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	var status equipment.Status
	if len(args) == 3 {
		status = equipment.Status(args[2])
	}
	return repairLine(inv.Repair(ctx, args[0], equipment.RepairType(args[1]), status, o.technician, o.date, o.note))
}

func changeLens(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	return repairLine(inv.ChangeLens(ctx, args[0], equipment.Lens(args[1]), o.technician, o.date, o.note))
}

func addBulb(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	life := 0
	if len(args) == 2 {
		var err error
		if life, err = parseInt("life", args[1]); err != nil {
			return "", err
		}
	}
	id, err := inv.AddBulb(ctx, args[0], life, o.date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bulb %d", id), nil
}

func relamp(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	b, err := inv.ReLampBulb(ctx, args[0], o.date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("bulb %d (%s life %d)", b.ID, b.Serial, b.Life), nil
}

func projectorHours(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	hours, err := parseInt("hours", args[1])
	if err != nil {
		return "", err
	}
	if err := inv.RecordProjectorHours(ctx, args[0], hours, o.date, o.note); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s at %d hours", args[0], hours), nil
}

func lampHours(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	hours, err := parseInt("hours", args[1])
	if err != nil {
		return "", err
	}
	if err := inv.RecordLampHours(ctx, args[0], hours, o.date, o.note); err != nil {
		return "", err
	}
	return fmt.Sprintf("lamp in %s at %d hours", args[0], hours), nil
}

func swap(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	slot, err := parseInt("slot", args[0])
	if err != nil {
		return "", err
	}
	status := equipment.StatusBroken
	if len(args) == 4 {
		status = equipment.Status(args[3])
	}
	outID, inID, err := inv.Swap(ctx, slot, args[1], args[2], status, o.technician, o.date, o.note)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("repairs %d and %d", outID, inID), nil
}

func changeBulb(ctx context.Context, inv *inventory.Orchestrator, o changeOptions, args []string) (string, error) {
	out, err := parseBulbRef(args[1])
	if err != nil {
		return "", err
	}
	in, err := parseBulbRef(args[2])
	if err != nil {
		return "", err
	}
	return repairLine(inv.ChangeBulb(ctx, args[0], out, in, o.technician, o.date, o.note))
}

// parseBulbRef reads "serial" or "serial:life".
func parseBulbRef(s string) (inventory.BulbRef, error) {
	serial, life, found := strings.Cut(s, ":")
	ref := inventory.BulbRef{Serial: serial}
	if found {
		n, err := parseInt("life", life)
		if err != nil {
			return ref, err
		}
		ref.Life = n
	}
	return ref, nil
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errUsage, name, s)
	}
	return n, nil
}

func repairLine(id int64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("repair %d", id), nil
}
