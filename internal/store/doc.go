// Package store provides read access to acquisition-keyed record stores.
//
// A RecordStore is an append-only, randomly readable sequence of rows. One
// column holds the acquisition key (shot number) in non-decreasing order;
// keys may repeat consecutively when a store interleaves several device
// configurations, and may jump where shots were excluded.
//
// Two implementations exist:
//
//   - SQLiteStore serves datasets persisted as SQLite tables, one table per
//     device dataset, with rowid order as row order. Opened with WAL mode so
//     independent read calls can run concurrently.
//   - MemStore is an in-memory fixture store for tests and the scenario
//     harness.
//
// The interface is deliberately a capability set: the read engine only ever
// needs row counts, column presence, typed reads at explicit indices, and
// strided span reads of the key column.
package store
