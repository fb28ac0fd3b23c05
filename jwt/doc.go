// Package jwt encodes and validates the signed access/refresh credential pair
// carrying {iat, exp, uid, sid}.
//
// Access and refresh tokens are HS256-signed with independent secrets and
// independent TTLs, so a leaked access token never validates as a refresh
// token. Expiry is the only bound on token lifetime; revocation is handled by
// the session-id match and the optional denylist in the engine.
package jwt
