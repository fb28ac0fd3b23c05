// Package internal groups the engine's private building blocks.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: flow orchestrators for every Engine operation
//   - metrics: lock-free counters and latency histograms
//   - rate: Redis fixed-window limiter for login and refresh
//   - stores: gorm repositories for users and sessions
//
// Nothing here is part of the public API.
package internal
