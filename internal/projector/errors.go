package projector

import (
	"errors"
	"fmt"

	"github.com/yurtlab/pjinventory/internal/record"
)

// Domain errors for the projector package.
var (
	// ErrNotFound is returned when a projector serial has no row.
	ErrNotFound = errors.New("projector: not found")

	// ErrExists is returned when adding a serial that already has a row.
	ErrExists = errors.New("projector: already exists")

	// ErrSlotNotRegistered is returned when a slot has no wiring entry.
	ErrSlotNotRegistered = errors.New("projector: slot not registered")

	// ErrSlotRegistered is returned when registering a slot twice.
	ErrSlotRegistered = errors.New("projector: slot already registered")

	// ErrSlotEmpty is returned when no projector occupies a slot.
	ErrSlotEmpty = errors.New("projector: slot empty")

	// ErrSlotConflict is returned when more than one projector claims a slot.
	ErrSlotConflict = errors.New("projector: slot claimed by several projectors")
)

// translate maps record errors onto this package's sentinels.
func translate(err error, subject any, notFound, exists error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, record.ErrNotFound):
		return fmt.Errorf("%w: %v", notFound, subject)
	case exists != nil && errors.Is(err, record.ErrDuplicateKey):
		return fmt.Errorf("%w: %v", exists, subject)
	case errors.Is(err, record.ErrAmbiguousKey):
		return fmt.Errorf("%w: %v", ErrSlotConflict, subject)
	}
	return err
}
