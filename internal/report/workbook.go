package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/yurtlab/pjinventory/internal/inventory"
)

// Sheet names in the exported workbook.
const (
	SheetProjectors = "Projectors"
	SheetRepairs    = "Repairs"
	SheetBulbs      = "Bulbs"
)

var (
	projectorHeader = []string{"Serial", "Status", "Location", "Slot", "Lens", "Hours", "Manufactured", "Last Repair", "Last Error", "Switch", "Port", "Server", "Display"}
	repairHeader    = []string{"ID", "Projector", "Date", "Type", "Technician", "Note"}
	bulbHeader      = []string{"ID", "Serial", "Life", "Status", "Projector", "Lamp Hours", "Date In", "Date Out", "Last Repair"}
)

type sheet struct {
	name   string
	header []string
	widths []float64
	rows   [][]any
}

// WriteWorkbook writes the projector and bulb reports as an .xlsx workbook
// with one sheet each for projectors, repairs and bulbs.
func WriteWorkbook(w io.Writer, projectors []inventory.ProjectorReport, bulbs []inventory.BulbReport) error {
	sheets := []sheet{
		{name: SheetProjectors, header: projectorHeader, widths: []float64{14, 10, 10, 6, 8, 8, 14, 12, 30, 10, 8, 12, 10}},
		{name: SheetRepairs, header: repairHeader, widths: []float64{6, 14, 12, 10, 16, 40}},
		{name: SheetBulbs, header: bulbHeader, widths: []float64{6, 14, 6, 10, 14, 12, 12, 12, 12}},
	}

	for _, r := range projectors {
		st := r.Status
		row := []any{st.Serial, string(st.Status), string(st.Location), optionalInt(int64(st.Slot)), string(st.Lens),
			st.TotalHours, st.MfgDate.String(), optionalInt(st.RepairID), st.ErrorRecord}
		if r.Position != nil {
			row = append(row, r.Position.SerialSwitch, r.Position.SerialPort, r.Position.Server, r.Position.Display)
		}
		sheets[0].rows = append(sheets[0].rows, row)

		for _, rec := range r.Repairs {
			sheets[1].rows = append(sheets[1].rows,
				[]any{rec.ID, rec.Serial, rec.Date.String(), string(rec.Type), rec.Technician, rec.Note})
		}
	}
	for _, r := range bulbs {
		b := r.Bulb
		sheets[2].rows = append(sheets[2].rows, []any{b.ID, b.Serial, b.Life, string(b.Status), b.Projector,
			b.LampHours, b.DateIn.String(), b.DateOut.String(), optionalInt(b.RepairID)})
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // nothing was opened from disk

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for _, s := range sheets {
		if err := writeSheet(f, s, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(SheetProjectors)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if _, err := f.NewSheet(s.name); err != nil {
		return err
	}

	for col, title := range s.header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.name, cell, title); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}

	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// optionalInt leaves the cell blank for an unset id or slot.
func optionalInt(n int64) any {
	if n == 0 {
		return ""
	}
	return n
}
