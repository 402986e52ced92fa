// Package record is the schema-driven accessor shared by every inventory
// table.
//
// A Table pairs one current table with its optional history table, both
// described by a catalog.Table. It provides:
//   - Synthetic keys reserved from the persisted sequences table
//   - Insert with a primary and natural key uniqueness check
//   - Update with an automatic pre-image snapshot into the history table
//   - Narrow single-column reads and writes that bypass history
//   - Single row lookups, filtered listing and history listing
//
// Column and table identifiers come only from the catalog; every value is a
// bound parameter. Multi-statement operations run in a transaction, or join
// the caller's when the Table was built over a *sql.Tx.
//
// Usage:
//
//	status := record.New(tx, catalog.ProjectorStatus)
//	err := status.Update(ctx, "P1",
//	    []any{record.Keep, 12, record.Keep, "in use", record.Keep, record.Keep, record.Keep, record.Keep},
//	    "2020-02-01", "installed in slot 12")
package record
