// Package database provides the SQLite connection behind the inventory store.
//
// This package manages:
//   - Opening the database with foreign keys on and immediate transactions
//   - Versioned schema migrations with a schema_migrations ledger
//   - A WithTx helper so multi-table transitions commit or roll back as one
//
// Security Considerations:
//   - All values are bound as parameters; identifiers come from the catalog
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are supplied through MigrationsFS, normally by importing
// the migrations package for its side effect.
package database
