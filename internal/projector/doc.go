// Package projector manages the three projector tables: colour settings,
// lifecycle status and the slot wiring directory.
//
// Each manager is built over an explicit record.Querier, normally the
// *sql.Tx of the inventory operation in progress:
//
//	status := projector.NewStatusTable(tx)
//	if err := status.RecordHistory(ctx, "P1", date, "installed in slot 12"); err != nil {
//	    return err
//	}
//	if err := status.AssignSlot(ctx, "P1", 12); err != nil {
//	    return err
//	}
//
// Status setters write one column and never snapshot on their own. A
// lifecycle transition takes exactly one snapshot with RecordHistory and then
// applies its field writes. The error record is the exception to history
// altogether: it is overwritten in place.
//
// Settings.Set and the positions directory are whole-row operations.
package projector
