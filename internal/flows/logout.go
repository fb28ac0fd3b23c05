package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/gorm"
)

// RotateResult reports the replaced and the new session id. Evicted is
// false when the cache delete failed after the rotation committed.
type RotateResult struct {
	Failure      SessionFailureKind
	Err          error
	OldSessionID string
	SessionID    string
	Evicted      bool
	Revoked      bool
}

// RotateDeps captures session rotation dependencies.
type RotateDeps struct {
	Transact Transactor
	Sessions SessionRepository
	Cache    SessionCache
	Revoke   func(ctx context.Context, sessionID string) error
	Warn     func(string, ...any)
}

// RunRotateSession replaces the session id of userID so every credential
// bound to the old id is rejected, evicts the cached session and, when a
// denylist is configured, revokes the old id for outstanding access tokens.
func RunRotateSession(ctx context.Context, userID int64, deps RotateDeps) RotateResult {
	var result RotateResult
	failure := SessionFailureStore

	err := deps.Transact(ctx, func(tx *gorm.DB) error {
		current, err := deps.Sessions.FindByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, stores.ErrNotFound) {
				failure = SessionFailureNotFound
			}
			return err
		}
		result.OldSessionID = current.ID
		next, err := deps.Sessions.Rotate(ctx, tx, current)
		if err != nil {
			if errors.Is(err, stores.ErrVersionConflict) {
				failure = SessionFailureConflict
			}
			return err
		}
		result.SessionID = next
		return nil
	})
	if err != nil {
		result.Failure = failure
		result.Err = err
		return result
	}

	result.Evicted = evict(ctx, deps.Cache, session.UserKey(userID), deps.Warn)

	if deps.Revoke != nil {
		if err := deps.Revoke(ctx, result.OldSessionID); err != nil {
			warn(deps.Warn, "goMiniAuth: session revocation failed", "session_id", result.OldSessionID, "error", err)
		} else {
			result.Revoked = true
		}
	}
	return result
}
