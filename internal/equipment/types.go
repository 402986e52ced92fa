// Package equipment holds the closed value sets shared by projectors, bulbs
// and the repair log, together with their validation.
//
// Values are validated at the inventory boundary, before any row or history
// snapshot is written.
package equipment

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a projector or bulb.
type Status string

// Status constants.
const (
	StatusSpare  Status = "spare"
	StatusBroken Status = "broken"
	StatusInUse  Status = "in use"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusSpare, StatusBroken, StatusInUse}
}

// Location says whether a projector is at the site or away for repair.
type Location string

// Location constants.
const (
	LocationOnSite  Location = "on site"
	LocationOffSite Location = "off site"
)

// AllLocations returns all valid location values.
func AllLocations() []Location {
	return []Location{LocationOnSite, LocationOffSite}
}

// Lens is the throw lens fitted to a projector.
type Lens string

// Lens constants.
const (
	LensShort Lens = "short"
	LensLong  Lens = "long"
)

// AllLenses returns all valid lens values.
func AllLenses() []Lens {
	return []Lens{LensShort, LensLong}
}

// RepairType classifies a repair log entry.
type RepairType string

// RepairType constants.
const (
	RepairInstall   RepairType = "install"
	RepairUninstall RepairType = "uninstall"
	RepairShip      RepairType = "ship"
	RepairReceived  RepairType = "received"
	RepairBulb      RepairType = "bulb"
	RepairLens      RepairType = "lens"
	RepairBoard     RepairType = "board"
	RepairFixed     RepairType = "fixed"
	RepairOther     RepairType = "other"
)

// AllRepairTypes returns all valid repair types.
func AllRepairTypes() []RepairType {
	return []RepairType{
		RepairInstall, RepairUninstall, RepairShip, RepairReceived,
		RepairBulb, RepairLens, RepairBoard, RepairFixed, RepairOther,
	}
}

// NoProjector is stored in a bulb's projector column when it is not fitted.
const NoProjector = "none"

// DateLayout is the calendar date format used in every date column.
const DateLayout = "2006-01-02"

// minYear rejects dates typed with a two-digit year or left at a zero value.
const minYear = 2000

// Date is a calendar date with no time of day.
type Date struct {
	t time.Time
}

// NewDate returns the calendar date of t in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}
	if t.Year() <= minYear {
		return Date{}, fmt.Errorf("%w: %q is before %d", ErrInvalidDate, s, minYear+1)
	}
	return Date{t: t}, nil
}

// MustDate is ParseDate for literals in tests and fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return d.t
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Value stores the date as YYYY-MM-DD text, or NULL when unset.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// StoredDate reads a date column. Empty or malformed text yields the zero
// Date rather than an error, since stored rows were validated on the way in.
func StoredDate(s string) Date {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}
	}
	return Date{t: t}
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes YYYY-MM-DD; empty text yields the zero Date.
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
