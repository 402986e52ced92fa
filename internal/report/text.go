package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yurtlab/pjinventory/internal/bulb"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/inventory"
	"github.com/yurtlab/pjinventory/internal/projector"
)

const (
	minWidth = 0
	tabWidth = 4
	padding  = 2
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, minWidth, tabWidth, padding, ' ', 0)
}

// WriteProjectorReport writes one block per projector: current state, fitted
// bulbs, repairs and status history.
func WriteProjectorReport(w io.Writer, reports []inventory.ProjectorReport) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeProjector(w, r); err != nil {
			return fmt.Errorf("projector %s: %w", r.Status.Serial, err)
		}
	}
	return nil
}

func writeProjector(w io.Writer, r inventory.ProjectorReport) error {
	st := r.Status
	tw := newTable(w)

	fmt.Fprintf(tw, "Projector\t%s\n", st.Serial)
	fmt.Fprintf(tw, "Status\t%s, %s\n", st.Status, st.Location)
	fmt.Fprintf(tw, "Slot\t%s\n", slotText(st, r.Position))
	fmt.Fprintf(tw, "Lens\t%s\n", st.Lens)
	fmt.Fprintf(tw, "Hours\t%d\n", st.TotalHours)
	fmt.Fprintf(tw, "Manufactured\t%s\n", st.MfgDate)
	if st.ErrorRecord != "" {
		fmt.Fprintf(tw, "Last error\t%s\n", st.ErrorRecord)
	}
	fmt.Fprintf(tw, "Colour\t%s\n", colourText(r.Settings.Colour))
	fmt.Fprintf(tw, "Bulbs\t%s\n", bulbsText(r.Bulbs))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Repairs) > 0 {
		fmt.Fprintln(w, "\nRepairs")
		tw = newTable(w)
		fmt.Fprintln(tw, "ID\tDATE\tTYPE\tTECHNICIAN\tNOTE")
		for _, rec := range r.Repairs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", rec.ID, rec.Date, rec.Type, rec.Technician, rec.Note)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.History) > 0 {
		fmt.Fprintln(w, "\nHistory")
		tw = newTable(w)
		fmt.Fprintln(tw, "DATE\tSTATUS\tLOCATION\tSLOT\tHOURS\tLENS\tNOTE")
		for _, h := range r.History {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				h.Date, h.Status.Status, h.Location, slotNumber(h.Slot), h.TotalHours, h.Lens, h.Note)
		}
		return tw.Flush()
	}
	return nil
}

// WriteBulbReport writes one line per bulb life followed by its history.
func WriteBulbReport(w io.Writer, reports []inventory.BulbReport) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSERIAL\tLIFE\tSTATUS\tPROJECTOR\tHOURS\tIN\tOUT\tREPAIR")
	for _, r := range reports {
		b := r.Bulb
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			b.ID, b.Serial, b.Life, b.Status, b.Projector, b.LampHours, b.DateIn, dateText(b.DateOut), repairText(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		if len(r.History) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s life %d history\n", r.Bulb.Serial, r.Bulb.Life)
		tw = newTable(w)
		fmt.Fprintln(tw, "DATE\tSTATUS\tPROJECTOR\tHOURS\tNOTE")
		for _, h := range r.History {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", h.Date, h.Bulb.Status, h.Projector, h.LampHours, h.Note)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func slotText(st projector.Status, pos *projector.Position) string {
	if !st.Installed() {
		return "-"
	}
	if pos == nil {
		return fmt.Sprintf("%d (wiring not registered)", st.Slot)
	}
	return fmt.Sprintf("%d (%s port %s, %s %s)", st.Slot, pos.SerialSwitch, pos.SerialPort, pos.Server, pos.Display)
}

func slotNumber(slot int) string {
	if slot == 0 {
		return "-"
	}
	return fmt.Sprint(slot)
}

func colourText(c projector.Colour) string {
	return fmt.Sprintf("offset %d/%d/%d  gain %d/%d/%d  temp %d  gamma %d",
		c.RedOffset, c.GreenOffset, c.BlueOffset, c.RedGain, c.GreenGain, c.BlueGain, c.ColorTemp, c.Gamma)
}

func bulbsText(bulbs []bulb.Bulb) string {
	if len(bulbs) == 0 {
		return "none recorded"
	}
	parts := make([]string, len(bulbs))
	for i, b := range bulbs {
		parts[i] = fmt.Sprintf("%s life %d (%d h)", b.Serial, b.Life, b.LampHours)
	}
	return strings.Join(parts, ", ")
}

func dateText(d equipment.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

func repairText(r inventory.BulbReport) string {
	if r.Repair == nil {
		return "-"
	}
	return fmt.Sprintf("%d %s", r.Repair.ID, r.Repair.Type)
}
