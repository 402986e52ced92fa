// pjinventory keeps the lifecycle records of the projectors and bulbs of a
// projection dome.
//
// Usage:
//
//	pjinventory [-config path] migrate
//	pjinventory [-config path] report [serial]
//	pjinventory [-config path] bulbs [id]
//	pjinventory [-config path] slots [selection]
//	pjinventory [-config path] export <file.xlsx>
//	pjinventory [-config path] serve
//	pjinventory [-config path] <change> [-date d] [-tech name] [-note text] args...
//
// The changes are add-position, add-projector, install, uninstall, ship,
// receive, repair, swap, change-lens, add-bulb, change-bulb, relamp, hours and
// lamp-hours. Only changes connect MQTT and InfluxDB and push metrics; serve
// exposes its counters on /metrics instead.
//
// The configuration path may also be given in PJINVENTORY_CONFIG. Without
// one, built-in defaults and PJINVENTORY_* environment overrides apply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/yurtlab/pjinventory/internal/api"
	"github.com/yurtlab/pjinventory/internal/infrastructure/config"
	"github.com/yurtlab/pjinventory/internal/infrastructure/database"
	"github.com/yurtlab/pjinventory/internal/infrastructure/influxdb"
	"github.com/yurtlab/pjinventory/internal/infrastructure/logging"
	"github.com/yurtlab/pjinventory/internal/infrastructure/mqtt"
	"github.com/yurtlab/pjinventory/internal/inventory"
	"github.com/yurtlab/pjinventory/internal/report"
	_ "github.com/yurtlab/pjinventory/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// errUsage is returned for an unknown command or missing argument.
var errUsage = errors.New("usage: pjinventory [-config path] migrate | report [serial] | bulbs [id] | slots [selection] | export <file.xlsx> | serve | <change> args")

var readCommands = map[string]bool{
	"migrate": true,
	"report":  true,
	"bulbs":   true,
	"slots":   true,
	"export":  true,
	"serve":   true,
}

func knownCommand(name string) bool {
	_, write := writeCommands[name]
	return write || readCommands[name]
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//   - stdout: Destination of report output
//
// Returns:
//   - error: nil on success, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("pjinventory", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	configPath := flags.String("config", os.Getenv("PJINVENTORY_CONFIG"), "path to the YAML configuration file")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() == 0 {
		return errUsage
	}
	command, rest := flags.Arg(0), flags.Args()[1:]
	if !knownCommand(command) {
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version).ForSite(cfg.Site)
	log.Debug("configuration loaded", "path", *configPath, "commit", commit)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	if command == "migrate" {
		log.Info("database migrations complete", "path", cfg.Database.Path)
		return nil
	}

	inv := inventory.New(db)
	inv.SetLogger(log)
	inv.SetTechnician(cfg.Site.Technician)
	loc := cfg.Location()
	inv.SetClock(func() time.Time { return time.Now().In(loc) })
	metrics := inventory.NewMetrics()
	inv.SetMetrics(metrics)

	if command == "serve" {
		return serve(ctx, cfg, inv, metrics, log)
	}
	if _, ok := writeCommands[command]; ok {
		closeIntegrations, err := connectIntegrations(ctx, cfg, inv, metrics, log)
		if err != nil {
			return err
		}
		defer closeIntegrations()
		return runWrite(ctx, inv, command, rest, stdout)
	}
	return dispatch(ctx, inv, command, rest, stdout)
}

// serve runs the read-only report server until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, inv *inventory.Orchestrator, metrics *inventory.Metrics, log *logging.Logger) error {
	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log.With("component", "api"),
		Inventory: inv,
		Metrics:   metrics.Gatherer(),
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	log.Info("report server ready", "address", srv.Addr())

	<-ctx.Done()
	log.Info("shutdown signal received")
	return srv.Close()
}

// connectIntegrations wires the optional event and telemetry outputs into
// inv for a change and arranges for metrics to be pushed when enabled. The
// returned function releases them in reverse order.
func connectIntegrations(ctx context.Context, cfg *config.Config, inv *inventory.Orchestrator, metrics *inventory.Metrics, log *logging.Logger) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return func() {}, fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		closers = append(closers, func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		})
		inv.SetEventPublisher(mqtt.NewEventPublisher(mqttClient))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"prefix", mqttClient.Topics().Prefix(),
		)
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			closeAll()
			return func() {}, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		closers = append(closers, func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		})
		inv.SetTelemetrySink(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.Metrics.Enabled {
		closers = append(closers, func() {
			if err := pushMetrics(ctx, cfg, metrics); err != nil {
				log.Warn("pushing metrics failed", "url", cfg.Metrics.PushgatewayURL, "error", err)
			}
		})
	}

	return closeAll, nil
}

// pushMetrics sends the operation counters of this run to the Pushgateway.
func pushMetrics(ctx context.Context, cfg *config.Config, m *inventory.Metrics) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	return push.New(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job).
		Gatherer(m.Gatherer()).
		Grouping("site", cfg.Site.ID).
		PushContext(ctx)
}

func dispatch(ctx context.Context, inv *inventory.Orchestrator, command string, args []string, stdout io.Writer) error {
	switch command {
	case "report":
		serial := inventory.AllProjectors
		if len(args) > 0 {
			serial = args[0]
		}
		reports, err := inv.ProjectorReport(ctx, serial)
		if err != nil {
			return err
		}
		return report.WriteProjectorReport(stdout, reports)

	case "bulbs":
		id := inventory.AllBulbs
		if len(args) > 0 {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || n < 1 {
				return fmt.Errorf("%w: bulb id %q", errUsage, args[0])
			}
			id = n
		}
		reports, err := inv.BulbReport(ctx, id)
		if err != nil {
			return err
		}
		return report.WriteBulbReport(stdout, reports)

	case "slots":
		selection := ""
		if len(args) > 0 {
			selection = args[0]
		}
		return writeSlots(ctx, inv, selection, stdout)

	case "export":
		if len(args) != 1 {
			return errUsage
		}
		return export(ctx, inv, args[0])

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// writeSlots lists the mounted projectors, limited to selection when it is
// not empty.
func writeSlots(ctx context.Context, inv *inventory.Orchestrator, selection string, stdout io.Writer) error {
	var wanted map[int]bool
	if selection != "" {
		picked, err := inventory.ParseSlots(selection)
		if err != nil {
			return err
		}
		wanted = make(map[int]bool, len(picked))
		for _, n := range picked {
			wanted[n] = true
		}
	}

	slots, err := inv.InstalledSlots(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tSERIAL")
	for _, s := range slots {
		if wanted != nil && !wanted[s.Slot] {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\n", s.Slot, s.Serial)
	}
	return tw.Flush()
}

// export writes the full projector and bulb reports to an .xlsx file.
func export(ctx context.Context, inv *inventory.Orchestrator, path string) error {
	projectors, err := inv.ProjectorReport(ctx, inventory.AllProjectors)
	if err != nil {
		return err
	}
	bulbs, err := inv.BulbReport(ctx, inventory.AllBulbs)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteWorkbook(f, projectors, bulbs); err != nil {
		f.Close() //nolint:errcheck // already failing
		return err
	}
	return f.Close()
}
