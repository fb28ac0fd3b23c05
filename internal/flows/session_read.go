package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/gorm"
)

// SessionFailureKind classifies session read/write failures for root-level
// mapping.
type SessionFailureKind int

const (
	SessionFailureNone SessionFailureKind = iota
	SessionFailureNotFound
	SessionFailureUserNotFound
	SessionFailureConflict
	SessionFailureStore
)

// SessionReadResult carries the loaded session and cache observations.
type SessionReadResult struct {
	Failure  SessionFailureKind
	Err      error
	Session  *session.Session
	CacheHit bool
	// CacheErr is the first cache failure seen. It never fails the read.
	CacheErr error
}

// SessionReadDeps captures cache-aside read dependencies.
type SessionReadDeps struct {
	Cache    SessionCache
	Transact Transactor
	Sessions SessionRepository
	Warn     func(string, ...any)
}

// RunGetSession serves the session of userID from the cache, or loads it
// from the database inside a read transaction and populates the cache after
// commit unless an entry appeared meanwhile. Cache failures degrade to the
// database path.
func RunGetSession(ctx context.Context, userID int64, deps SessionReadDeps) SessionReadResult {
	key := session.UserKey(userID)
	var result SessionReadResult

	cached, found, err := deps.Cache.Get(ctx, key)
	switch {
	case err != nil:
		result.CacheErr = err
		warn(deps.Warn, "goMiniAuth: session cache read failed", "user_id", userID, "error", err)
		if errors.Is(err, session.ErrCorruptEntry) {
			if _, delErr := deps.Cache.Delete(ctx, key); delErr != nil {
				warn(deps.Warn, "goMiniAuth: corrupt session entry eviction failed", "user_id", userID, "error", delErr)
			}
		}
	case found:
		result.CacheHit = true
		result.Session = cached
		return result
	}

	var loaded *session.Session
	err = deps.Transact(ctx, func(tx *gorm.DB) error {
		sess, err := deps.Sessions.FindByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		loaded = sess
		return nil
	})
	if err != nil {
		result.Err = err
		result.Failure = SessionFailureStore
		if errors.Is(err, stores.ErrNotFound) {
			result.Failure = SessionFailureNotFound
		}
		return result
	}

	// A write that committed after the load has already cached a newer
	// version; populate must not replace it.
	if _, err := deps.Cache.SetIfAbsent(ctx, key, loaded); err != nil {
		if result.CacheErr == nil {
			result.CacheErr = err
		}
		warn(deps.Warn, "goMiniAuth: session cache populate failed", "user_id", userID, "error", err)
		evict(ctx, deps.Cache, key, deps.Warn)
	}

	result.Session = loaded
	return result
}

func evict(ctx context.Context, cache SessionCache, key string, warnFn func(string, ...any)) bool {
	if _, err := cache.Delete(ctx, key); err != nil {
		warn(warnFn, "goMiniAuth: session cache eviction failed", "key", key, "error", err)
		return false
	}
	return true
}
