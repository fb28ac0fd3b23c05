// Package stores provides the relational repositories for User and Session
// rows.
//
// # Design
//
// Every operation takes an open *gorm.DB transaction supplied by the caller.
// No repository method begins, commits or rolls back a transaction; the
// transaction boundary belongs to the flow functions in internal/flows.
// Session writes are guarded by a version column (optimistic concurrency)
// and the write path reads rows with SELECT ... FOR UPDATE where the
// dialect supports it.
//
// # What this package must NOT do
//
//   - Import goMiniAuth or any sibling internal package.
//   - Touch the Redis cache.
//   - Open its own transactions.
package stores
