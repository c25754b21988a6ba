// Package ledger persists the card collection.
//
// The ledger is an ordered list of card records, unique by exact name. It is
// only ever mutated by merging: a new name is appended with quantity 1, and a
// known name has its quantity incremented while every other column keeps the
// value from the first insert. Rows are never deleted here.
//
// Two backends implement Store. The CSV backend rewrites the whole file per
// merge under an in-process mutex plus an advisory lock file, replacing the
// file atomically. The SQLite backend performs the same upsert inside a
// transaction. Open picks one according to ledger.backend.
package ledger
