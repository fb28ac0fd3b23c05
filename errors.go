package goMiniAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goMiniAuth/jwt"
)

var (
	// ErrSignatureInvalid is returned when initData fails HMAC verification,
	// is malformed, or is older than Platform.MaxAuthAge.
	ErrSignatureInvalid = errors.New("initData signature invalid")
	// ErrIdentityInvalid is returned when a verified payload carries no usable
	// user id.
	ErrIdentityInvalid = errors.New("initData identity invalid")
	// ErrTokenInvalid covers every credential that fails decoding, signature,
	// expiry or revocation checks. It is the jwt package sentinel so callers
	// can match either.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrSessionMismatch is returned when a refresh credential does not belong
	// to the caller's current session. It wraps ErrTokenInvalid.
	ErrSessionMismatch = fmt.Errorf("%w: session mismatch", ErrTokenInvalid)

	// ErrNotFound is the parent of ErrUserNotFound and ErrSessionNotFound.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound wraps ErrNotFound.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrSessionNotFound wraps ErrNotFound.
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

	// ErrStore wraps relational store failures.
	ErrStore = errors.New("session store failure")
	// ErrSessionConflict is returned when a concurrent writer committed first.
	ErrSessionConflict = errors.New("session modified concurrently")
	// ErrValidation is returned for malformed session patches.
	ErrValidation = errors.New("invalid session patch")

	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrEngineNotReady is returned when a method is called on a nil or
	// partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid config")
)
