// Package goMiniAuth authenticates users of a messaging-platform mini
// application and keeps their per-user session state consistent across a
// relational store and a Redis cache.
//
// Login and Refresh accept the platform's signed initData payload, verify it
// against the bot token and issue an HS256 access/refresh pair bound to
// (user id, session id). GetSession and SetSession read and patch the
// session through a cache-aside protocol in which the database is always the
// source of truth.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// The root package is the public surface: [Engine], [Builder], [Config] and
// the value types. Flow orchestration, repositories, rate limiting, metrics
// storage and audit dispatch live under internal/. The HTTP adapter lives
// in cmd/miniauth-server and the request middleware in middleware/.
//
// # What this package must NOT do
//
//   - Expose Redis clients, repositories or cache encodings in its API.
//   - Own the lifecycle of the Redis client or the database handle.
//   - Log credentials, secrets or raw initData.
package goMiniAuth
