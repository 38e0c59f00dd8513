// Package database provides SQLite connectivity and schema migrations for geogate.
//
// This package manages:
//   - Database connection with WAL mode and a single writer connection
//   - Embedded schema migrations applied at startup
//   - Transaction helper shared by the repositories
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
