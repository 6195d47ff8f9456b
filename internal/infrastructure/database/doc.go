// Package database provides SQLite connectivity for Gray Logic Home.
//
// This package manages:
//   - The database connection (WAL mode and busy timeout for files,
//     a pinned single connection for in-memory databases)
//   - Versioned schema migrations read from MigrationsFS
//   - Health checks and lifecycle
//
// All queries in the repositories built on top use parameterised statements.
// Database files are created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or have defaults, and
// every .up.sql file has a matching .down.sql.
package database
