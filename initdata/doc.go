// Package initdata verifies platform-signed mini-app initialization payloads
// and extracts the platform user id from them.
//
// # Verification
//
// The payload is a URL-encoded key/value set. The hash field is removed, the
// remaining pairs are sorted by key and joined as key=value lines to form the
// check-string. The signing key is HMAC-SHA256 of the bot token keyed by the
// fixed "WebAppData" constant; the expected hash is HMAC-SHA256 of the
// check-string under that key. Comparison is constant time over the full
// digest.
//
// # What this package must NOT do
//
//   - Access Redis, the database, or any I/O.
//   - Treat a zero user id as a valid identity.
package initdata
