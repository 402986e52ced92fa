package equipment

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. Each wraps ErrInvalid, so callers that only care that
// input was rejected can test for that one:
//
//	if errors.Is(err, equipment.ErrInvalid) {
//	    // bad operator input, nothing was written
//	}
var (
	// ErrInvalid is the parent of every validation error.
	ErrInvalid = errors.New("equipment: invalid value")

	ErrInvalidStatus     = fmt.Errorf("%w: status", ErrInvalid)
	ErrInvalidLocation   = fmt.Errorf("%w: location", ErrInvalid)
	ErrInvalidLens       = fmt.Errorf("%w: lens", ErrInvalid)
	ErrInvalidDate       = fmt.Errorf("%w: date", ErrInvalid)
	ErrInvalidRepairType = fmt.Errorf("%w: repair type", ErrInvalid)
	ErrInvalidSerial     = fmt.Errorf("%w: serial", ErrInvalid)
	ErrInvalidSlot       = fmt.Errorf("%w: slot", ErrInvalid)
	ErrInvalidLife       = fmt.Errorf("%w: bulb life", ErrInvalid)
	ErrInvalidHours      = fmt.Errorf("%w: hours", ErrInvalid)
)

// maxSerialLength bounds serial numbers typed by operators.
const maxSerialLength = 64

// Pre-computed validation sets.
var (
	validStatuses    = toSet(AllStatuses())
	validLocations   = toSet(AllLocations())
	validLenses      = toSet(AllLenses())
	validRepairTypes = toSet(AllRepairTypes())
)

func toSet[T comparable](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ValidateStatus checks that s is one of AllStatuses.
func ValidateStatus(s Status) error {
	if _, ok := validStatuses[s]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q must be 'in use', 'spare' or 'broken'", ErrInvalidStatus, s)
}

// ValidateLocation checks that l is one of AllLocations.
func ValidateLocation(l Location) error {
	if _, ok := validLocations[l]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q must be 'on site' or 'off site'", ErrInvalidLocation, l)
}

// ValidateLens checks that l is one of AllLenses.
func ValidateLens(l Lens) error {
	if _, ok := validLenses[l]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q must be 'short' or 'long'", ErrInvalidLens, l)
}

// ValidateRepairType checks that r is one of AllRepairTypes.
func ValidateRepairType(r RepairType) error {
	if _, ok := validRepairTypes[r]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRepairType, r)
}

// ValidateDate rejects the zero date.
func ValidateDate(d Date) error {
	if d.IsZero() {
		return fmt.Errorf("%w: missing", ErrInvalidDate)
	}
	return nil
}

// ValidateSerial checks a projector or bulb serial number.
// NoProjector is reserved and rejected.
func ValidateSerial(serial string) error {
	trimmed := strings.TrimSpace(serial)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: empty", ErrInvalidSerial)
	case trimmed != serial:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidSerial, serial)
	case len(serial) > maxSerialLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidSerial, maxSerialLength)
	case serial == NoProjector:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSerial, serial)
	}
	return nil
}

// ValidateSlot checks a mounting slot number. Slots start at 1.
func ValidateSlot(slot int) error {
	if slot < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}

// ValidateLife checks a bulb life counter.
func ValidateLife(life int) error {
	if life < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLife, life)
	}
	return nil
}

// ValidateHours checks an hour meter reading.
func ValidateHours(hours int) error {
	if hours < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHours, hours)
	}
	return nil
}
