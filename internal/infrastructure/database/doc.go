// Package database provides the SQLite store behind accounts and channel
// orders.
//
// This package manages:
//   - The connection, with foreign keys enforced and optional WAL mode
//   - Versioned schema migrations embedded in the binary
//   - Transaction helpers
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to 0600 (it holds encrypted
//     mnemonics and node bearer tokens)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations live in the top-level migrations package as
// YYYYMMDD_HHMMSS_description.{up,down}.sql pairs.
package database
