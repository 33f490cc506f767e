// Package sqlite provides the SQLite-backed processing ledger.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. The database
// runs in WAL mode so stage workers writing records concurrently do not
// block readers; every mutation is a single statement or transaction,
// which is the crash-safety boundary the pipeline resumes from.
package sqlite
