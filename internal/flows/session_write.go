package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/gorm"
)

// SessionWriteResult carries the committed session and derived effects.
type SessionWriteResult struct {
	Failure     SessionFailureKind
	Err         error
	Before      *session.Session
	Session     *session.Session
	User        *session.User
	UserUpdated bool
	CacheErr    error
	Evicted     bool
}

// SessionWriteDeps captures transactional write dependencies.
type SessionWriteDeps struct {
	Transact     Transactor
	Users        UserRepository
	Sessions     SessionRepository
	Cache        SessionCache
	Policy       PatchPolicy
	GrantCredits float64
	Now          func() time.Time
	Warn         func(string, ...any)
}

// RunSetSession applies patch to the session of userID.
//
// The authoritative row is read with a lock, merged under the configured
// policy and written with a version check. When credits or subscription
// change, the owning user's aggregates are updated in the same transaction.
// The cache is written before commit; a cache failure evicts the key and a
// failed commit evicts it again. Nothing is written to the cache when a
// database step fails.
func RunSetSession(ctx context.Context, userID int64, patch Patch, deps SessionWriteDeps) SessionWriteResult {
	key := session.UserKey(userID)
	var (
		result       SessionWriteResult
		cacheWritten bool
	)
	failure := SessionFailureStore

	err := deps.Transact(ctx, func(tx *gorm.DB) error {
		current, err := deps.Sessions.FindByUserIDForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, stores.ErrNotFound) {
				failure = SessionFailureNotFound
			}
			return err
		}
		result.Before = current.Clone()

		next := ApplyPatch(*current, patch, deps.Policy, deps.GrantCredits)
		if deps.Now != nil {
			next.LastActiveTimestamp = deps.Now().Unix()
		}
		if err := deps.Sessions.Update(ctx, tx, &next); err != nil {
			if errors.Is(err, stores.ErrVersionConflict) {
				failure = SessionFailureConflict
			}
			return err
		}

		if DerivedFieldsChanged(*result.Before, next) {
			user, err := deps.Users.FindByUserID(ctx, tx, userID)
			if err != nil {
				if errors.Is(err, stores.ErrNotFound) {
					failure = SessionFailureUserNotFound
				}
				return err
			}
			derived := DeriveUser(*user, *result.Before, next)
			if err := deps.Users.Update(ctx, tx, &derived); err != nil {
				return err
			}
			result.User = &derived
			result.UserUpdated = true
		}

		if err := deps.Cache.Set(ctx, key, &next); err != nil {
			result.CacheErr = err
			warn(deps.Warn, "goMiniAuth: session cache write failed", "user_id", userID, "error", err)
			result.Evicted = evict(ctx, deps.Cache, key, deps.Warn)
		} else {
			cacheWritten = true
		}

		result.Session = &next
		return nil
	})
	if err != nil {
		if cacheWritten {
			result.Evicted = evict(ctx, deps.Cache, key, deps.Warn)
		}
		result.Failure = failure
		result.Err = err
		result.Session = nil
		result.User = nil
		result.UserUpdated = false
		return result
	}

	return result
}
