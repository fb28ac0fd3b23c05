// Package rate provides Redis-backed fixed-window attempt counters for the
// login and refresh flows.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit of a window. Keys are
// <prefix>:login:<userID> and <prefix>:refresh:<userID>, where userID is the
// verified platform user id.
//
// # What this package must NOT do
//
//   - Count attempts for unverified identities.
//   - Be imported outside the goMiniAuth module.
package rate
