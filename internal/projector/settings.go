package projector

import (
	"context"

	"github.com/yurtlab/pjinventory/internal/catalog"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/record"
)

// Colour holds the eight calibration values read from or sent to a
// projector.
type Colour struct {
	RedOffset   int `json:"red_offset"`
	GreenOffset int `json:"green_offset"`
	BlueOffset  int `json:"blue_offset"`
	RedGain     int `json:"red_gain"`
	GreenGain   int `json:"green_gain"`
	BlueGain    int `json:"blue_gain"`
	ColorTemp   int `json:"color_temp"`
	Gamma       int `json:"gamma"`
}

// Settings is a row of projector_settings.
type Settings struct {
	Serial string         `json:"serial"`
	Lens   equipment.Lens `json:"lens"`
	Colour
}

// SettingsRecord is a row of projector_settings_history.
type SettingsRecord struct {
	Settings
	Date equipment.Date `json:"date"`
	Note string         `json:"note"`
}

// Fields returns the values keyed by column name.
func (c Colour) Fields() map[string]int {
	return map[string]int{
		"red_offset":   c.RedOffset,
		"green_offset": c.GreenOffset,
		"blue_offset":  c.BlueOffset,
		"red_gain":     c.RedGain,
		"green_gain":   c.GreenGain,
		"blue_gain":    c.BlueGain,
		"color_temp":   c.ColorTemp,
		"gamma":        c.Gamma,
	}
}

func (c Colour) values() []any {
	return []any{c.RedOffset, c.GreenOffset, c.BlueOffset, c.RedGain, c.GreenGain, c.BlueGain, c.ColorTemp, c.Gamma}
}

// SettingsTable manages colour calibration per projector.
type SettingsTable struct {
	t *record.Table
}

// NewSettingsTable returns a SettingsTable issuing statements through q.
func NewSettingsTable(q record.Querier) *SettingsTable {
	return &SettingsTable{t: record.New(q, catalog.ProjectorSettings)}
}

// Add creates the settings row for a new projector with zeroed colour values.
func (s *SettingsTable) Add(ctx context.Context, serial string, lens equipment.Lens) error {
	values := append([]any{serial, lens}, Colour{}.values()...)
	_, err := s.t.Insert(ctx, values...)
	return translate(err, serial, nil, ErrExists)
}

// Get returns the settings of one projector.
func (s *SettingsTable) Get(ctx context.Context, serial string) (Settings, error) {
	row, err := s.t.Get(ctx, serial)
	if err != nil {
		return Settings{}, translate(err, serial, ErrNotFound, nil)
	}
	return settingsFromRow(row), nil
}

// Set replaces the lens and colour values, snapshotting the previous row to
// history with date and note.
func (s *SettingsTable) Set(ctx context.Context, settings Settings, date equipment.Date, note string) error {
	values := append([]any{settings.Lens}, settings.Colour.values()...)
	err := s.t.Update(ctx, settings.Serial, values, date.String(), note)
	return translate(err, settings.Serial, ErrNotFound, nil)
}

// SetColour replaces only the colour values, with history.
func (s *SettingsTable) SetColour(ctx context.Context, serial string, colour Colour, date equipment.Date, note string) error {
	values := append([]any{record.Keep}, colour.values()...)
	err := s.t.Update(ctx, serial, values, date.String(), note)
	return translate(err, serial, ErrNotFound, nil)
}

// SetLens writes the lens column without history. Lens changes are audited
// through the status history and the repair log.
func (s *SettingsTable) SetLens(ctx context.Context, serial string, lens equipment.Lens) error {
	err := s.t.SetValue(ctx, "projector_serial", serial, "lens_type", lens)
	return translate(err, serial, ErrNotFound, nil)
}

// RecordHistory snapshots the current settings without changing them.
func (s *SettingsTable) RecordHistory(ctx context.Context, serial string, date equipment.Date, note string) error {
	err := s.t.RecordHistory(ctx, date.String(), note, record.Eq("projector_serial", serial))
	return translate(err, serial, ErrNotFound, nil)
}

// History returns the snapshots of one projector's settings, oldest first.
func (s *SettingsTable) History(ctx context.Context, serial string) ([]SettingsRecord, error) {
	rows, err := s.t.History(ctx, record.Eq("projector_serial", serial))
	if err != nil {
		return nil, err
	}
	out := make([]SettingsRecord, len(rows))
	for i, row := range rows {
		out[i] = SettingsRecord{
			Settings: settingsFromRow(row),
			Date:     equipment.StoredDate(row.String(catalog.DateColumn)),
			Note:     row.String(catalog.NoteColumn),
		}
	}
	return out, nil
}

// List returns every settings row ordered by serial.
func (s *SettingsTable) List(ctx context.Context) ([]Settings, error) {
	rows, err := s.t.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Settings, len(rows))
	for i, row := range rows {
		out[i] = settingsFromRow(row)
	}
	return out, nil
}

func settingsFromRow(row record.Row) Settings {
	return Settings{
		Serial: row.String("projector_serial"),
		Lens:   equipment.Lens(row.String("lens_type")),
		Colour: Colour{
			RedOffset:   row.Int("red_offset"),
			GreenOffset: row.Int("green_offset"),
			BlueOffset:  row.Int("blue_offset"),
			RedGain:     row.Int("red_gain"),
			GreenGain:   row.Int("green_gain"),
			BlueGain:    row.Int("blue_gain"),
			ColorTemp:   row.Int("color_temp"),
			Gamma:       row.Int("gamma"),
		},
	}
}
