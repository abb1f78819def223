// Package database provides the SQLite persistence layer for Dwell Core.
//
// It wraps database/sql with:
//   - Connection setup (WAL mode, busy timeout, single-writer pool)
//   - Embedded SQL migrations with a schema_migrations ledger
//   - Health checks and connection statistics
//
// The occupancy record store (internal/tracking) builds on the connection
// this package opens; the schema lives in the top-level migrations package.
//
// # Migrations
//
// Migration files are embedded via the migrations package and follow the
// naming scheme YYYYMMDD_HHMMSS_description.up.sql / .down.sql. Each
// migration runs in its own transaction; a failed migration is rolled back
// and halts the run without affecting earlier migrations.
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
