// Package logging provides structured logging for pjinventory.
//
// It wraps log/slog so every entry carries the service and version, and
// optionally the site the inventory belongs to.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// Logs default to stderr because reports are written to stdout.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version).ForSite(cfg.Site)
//	logger.Info("projector installed", "serial", serial, "slot", slot)
//
// # Security
//
// Never log broker passwords or InfluxDB tokens.
package logging
