// Package session owns the User and Session entities and the typed Redis
// cache gateway that serves Session state.
//
// # Cache key families
//
// Every cached value belongs to a [KeyFamily], which fixes the key prefix, the
// TTL and the value codec. A [Store] is bound to exactly one family and
// exposes get/set/delete/exists/ttl for it. The session family uses keys of
// the form SESSION_KEY_<userID> with a 600s TTL and JSON values.
//
// # Architecture boundaries
//
// The cache is never authoritative. A miss means "reload from the database",
// never "session does not exist". Transaction handling and cache coherence
// belong to the engine flows.
//
// # What this package must NOT do
//
//   - Import goMiniAuth, jwt, or initdata (no upward imports).
//   - Open database transactions.
//   - Treat a decode failure as a cache miss.
package session
