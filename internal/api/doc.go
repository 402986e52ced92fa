// Package api implements the read-only HTTP report server for pjinventory.
//
// This package provides:
//   - JSON endpoints for projector, bulb, slot and position reports
//   - An xlsx export of the full inventory
//   - The Prometheus exposition of inventory operation metrics
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// Every lifecycle operation goes through the CLI; the server never writes.
//
// # Routes
//
//	GET /api/v1/health
//	GET /api/v1/metrics
//	GET /api/v1/projectors            all projectors
//	GET /api/v1/projectors/{serial}   one projector
//	GET /api/v1/bulbs                 all bulb lives
//	GET /api/v1/bulbs/{id}            one bulb life by id
//	GET /api/v1/slots                 mounted projectors in slot order
//	GET /api/v1/positions             slot wiring
//	GET /api/v1/export.xlsx           workbook export
package api
