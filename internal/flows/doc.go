// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunGetSession, RunSetSession,
// etc.) accepts a typed dependency struct and returns a result carrying a
// failure kind instead of a root-level error. The Engine maps failure kinds to
// sentinel errors, metrics and audit events.
//
// # Consistency protocol
//
// The database is always the durability source of truth. Reads are
// cache-aside: a cache hit is served directly, a miss is loaded inside a
// transaction and the cache is populated after commit. Writes lock and load
// the authoritative row, apply the patch policy, persist the Session and any
// derived User aggregates in the same transaction, then write the cache
// before commit. A cache write failure evicts the key; a failed commit
// evicts the key again so data from a rolled back write is never served.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goMiniAuth (to avoid import cycles).
//   - Begin or commit transactions except through the Transact dependency.
package flows
