package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yurtlab/pjinventory/internal/bulb"
	"github.com/yurtlab/pjinventory/internal/equipment"
	"github.com/yurtlab/pjinventory/internal/infrastructure/database"
	"github.com/yurtlab/pjinventory/internal/projector"
	"github.com/yurtlab/pjinventory/internal/record"
	"github.com/yurtlab/pjinventory/internal/repair"
)

// Logger defines the logging interface used by the Orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventPublisher receives lifecycle events after their transaction commits.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event equipment.Event) error
}

// TelemetrySink receives hour and colour readings after they are stored.
type TelemetrySink interface {
	WriteProjectorHours(serial string, slot, hours int, at time.Time)
	WriteLampHours(serial string, life int, projectorSerial string, hours int, at time.Time)
	WriteColour(serial string, fields map[string]int, at time.Time)
}

// HardwareTransport sends a textual command to the projector wired to a
// serial switch port and returns its reply.
type HardwareTransport interface {
	SendCommand(ctx context.Context, serialSwitch, serialPort, command string) (string, error)
}

// Clock returns the current time. The calendar date of its result is what
// operations treat as today.
type Clock func() time.Time

// Orchestrator performs inventory operations across the projector, bulb and
// repair tables.
//
// It is not safe for concurrent mutation from several goroutines; operations
// are expected to run one at a time, as they do from the command line.
type Orchestrator struct {
	db         *database.DB
	logger     Logger
	now        Clock
	technician string

	events    EventPublisher
	telemetry TelemetrySink
	transport HardwareTransport
	metrics   *Metrics
}

// New creates an Orchestrator over db. The schema must already be migrated.
func New(db *database.DB) *Orchestrator {
	return &Orchestrator{
		db:     db,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetClock replaces the time source used for Today and telemetry.
func (o *Orchestrator) SetClock(clock Clock) {
	o.now = clock
}

// SetTechnician sets the name recorded on repairs when the caller gives none.
func (o *Orchestrator) SetTechnician(name string) {
	o.technician = name
}

// SetEventPublisher enables lifecycle events.
func (o *Orchestrator) SetEventPublisher(p EventPublisher) {
	o.events = p
}

// SetTelemetrySink enables mirroring of hour and colour readings.
func (o *Orchestrator) SetTelemetrySink(s TelemetrySink) {
	o.telemetry = s
}

// SetTransport sets the hardware transport used by RecordTelemetry.
func (o *Orchestrator) SetTransport(t HardwareTransport) {
	o.transport = t
}

// SetMetrics enables operation counters.
func (o *Orchestrator) SetMetrics(m *Metrics) {
	o.metrics = m
}

// Today returns the current calendar date according to the clock.
func (o *Orchestrator) Today() equipment.Date {
	return equipment.NewDate(o.now())
}

// stores are the managers of one transaction, plus the side effects to
// emit once it commits.
type stores struct {
	settings  *projector.SettingsTable
	status    *projector.StatusTable
	positions *projector.PositionDirectory
	repairs   *repair.Log
	bulbs     *bulb.StatusTable

	events   []equipment.Event
	readings []func(TelemetrySink)
}

func newStores(q record.Querier) *stores {
	return &stores{
		settings:  projector.NewSettingsTable(q),
		status:    projector.NewStatusTable(q),
		positions: projector.NewPositionDirectory(q),
		repairs:   repair.NewLog(q),
		bulbs:     bulb.NewStatusTable(q),
	}
}

func (s *stores) emit(e equipment.Event) {
	s.events = append(s.events, e)
}

func (s *stores) reading(fn func(TelemetrySink)) {
	s.readings = append(s.readings, fn)
}

// run executes fn in one transaction and, once it has committed, publishes
// the events and readings fn queued.
func (o *Orchestrator) run(ctx context.Context, op string, fn func(s *stores) error) error {
	start := time.Now()
	var committed *stores

	err := o.db.WithTx(ctx, func(tx *sql.Tx) error {
		s := newStores(tx)
		if err := fn(s); err != nil {
			return err
		}
		committed = s
		return nil
	})
	o.metrics.observe(op, err, time.Since(start))
	if err != nil {
		o.logger.Warn("inventory operation failed", "op", op, "error", err)
		return err
	}

	o.logger.Debug("inventory operation committed", "op", op, "events", len(committed.events))
	o.publish(ctx, committed)
	return nil
}

// read runs fn against the database outside any explicit transaction.
func (o *Orchestrator) read(fn func(s *stores) error) error {
	return fn(newStores(o.db))
}

// query is read for the report operations, counted under op.
func (o *Orchestrator) query(op string, fn func(s *stores) error) error {
	start := time.Now()
	err := o.read(fn)
	o.metrics.observe(op, err, time.Since(start))
	return err
}

// fail records a failure detected before any write.
func (o *Orchestrator) fail(op string, err error) error {
	o.metrics.observe(op, err, 0)
	o.logger.Debug("inventory operation rejected", "op", op, "error", err)
	return err
}

func (o *Orchestrator) publish(ctx context.Context, s *stores) {
	if o.events != nil {
		for _, e := range s.events {
			if e.Timestamp.IsZero() {
				e.Timestamp = o.now().UTC()
			}
			if err := o.events.PublishEvent(ctx, e); err != nil {
				o.logger.Warn("publishing lifecycle event failed",
					"kind", e.Kind, "serial", e.Serial, "action", e.Action, "error", err)
			}
		}
	}
	if o.telemetry != nil {
		for _, write := range s.readings {
			write(o.telemetry)
		}
	}
}

// technicianOr returns name, or the configured technician when name is blank.
func (o *Orchestrator) technicianOr(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = o.technician
	}
	if name == "" {
		return "", fmt.Errorf("%w: technician is required", equipment.ErrInvalid)
	}
	return name, nil
}

// validate returns the first non-nil error.
func validate(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
