package equipment

import "time"

// EventKind names the entity an Event is about.
type EventKind string

// Actions that are not repair types.
const (
	ActionAdd       = "add"
	ActionReLamp    = "relamp"
	ActionSettings  = "settings"
	ActionTelemetry = "telemetry"
)

// EventKind constants.
const (
	EventProjector EventKind = "projector"
	EventBulb      EventKind = "bulb"
)

// Event describes one committed lifecycle transition. It is published after
// the transaction that made the change has committed. Action is a RepairType
// for transitions that log a repair, otherwise one of the Action constants.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Action     string    `json:"action"`
	Serial     string    `json:"serial"`
	Life       int       `json:"life,omitempty"`
	Projector  string    `json:"projector,omitempty"`
	Slot       int       `json:"slot,omitempty"`
	Status     Status    `json:"status,omitempty"`
	Location   Location  `json:"location,omitempty"`
	RepairID   int64     `json:"repair_id,omitempty"`
	Technician string    `json:"technician,omitempty"`
	Date       Date      `json:"date"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
