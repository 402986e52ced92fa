// Package inventory coordinates operations that span several tables.
//
// An Orchestrator owns the database handle. Each operation validates its
// arguments, then runs in a single transaction over freshly built managers,
// so a failure part way through a transition leaves no table changed.
//
// Projector transitions follow one order: snapshot the status row with the
// operation's date and note, write the changed fields, append the repair log
// entry, then point the projector at that entry.
//
//	spare,on site ──install──▶ in use ──uninstall──▶ spare|broken
//	      ▲                       │
//	  receive                   ship (any state)
//	      │                       ▼
//	 off site ◀───────────── broken,off site
//
// Lifecycle events, telemetry points and metrics are side channels. They are
// emitted only after the transaction commits and their failures are logged,
// never returned.
package inventory
