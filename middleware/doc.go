// Package middleware adapts goMiniAuth.Engine to net/http.
//
//   - [Guard] validates a bearer access token and injects the claims into the
//     request context.
//   - [RequireSignature] authenticates internal callers by an HMAC of the
//     request body; [SignBody] produces the header value.
//   - [ClientIP] records the peer address for audit events.
//
// Authentication decisions are delegated to the Engine; this package only
// translates HTTP semantics.
package middleware
