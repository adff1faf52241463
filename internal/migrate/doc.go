// Package migrate upgrades payment databases written by earlier releases.
//
// The schema version lives in SQLite's PRAGMA user_version. Databases from
// before versioning have user_version 0 but already hold payment tables and
// are treated as v1. Run applies each step in its own transaction together
// with the version bump:
//
//	v1 -> v2  liquidity leases are re-encoded as liquidity purchases
//	v2 -> v3  payment tables are re-keyed by identity and incoming parts
//	          move from one blob per payment to one row per part
//
// A failed step rolls back completely and Run returns a *MigrationError,
// which matches ErrMigrationAborted. The database stays at the last
// committed version and the next Run retries from there.
//
// # Writing
//
// Steps read legacy rows in rowid order, one page at a time, and convert
// them with the codec registry. The converted payments are written through
// a Writer, which package store implements with its live insert paths, so a
// migrated row is indistinguishable from one written by the current
// release.
package migrate
