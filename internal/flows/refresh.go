package flows

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/jwt"
	"gorm.io/gorm"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureSignature
	RefreshFailureIdentity
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureUserNotFound
	RefreshFailureSessionNotFound
	RefreshFailureMismatch
	RefreshFailureRevoked
	RefreshFailureStore
	RefreshFailureIssue
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	UserID    int64
	SessionID string
	Tokens    jwt.Pair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	CheckPayload      func(string) (url.Values, error)
	UserIDFromValues  func(url.Values) int64
	ParseRefreshToken func(string) (*jwt.Claims, error)
	RateLimiter       AttemptLimiter
	IsRevoked         func(ctx context.Context, sessionID string) (bool, error)
	Transact          Transactor
	Users             UserRepository
	Sessions          SessionRepository
	IssuePair         func(uid int64, sid string) (jwt.Pair, error)
	Warn              func(string, ...any)
}

// RunRefresh re-verifies the platform payload, checks that the refresh token
// is bound to the user's current session and reissues a pair for the same
// (userID, sessionID).
func RunRefresh(ctx context.Context, payload, refreshToken string, deps RefreshDeps) RefreshResult {
	values, err := deps.CheckPayload(payload)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureSignature, Err: err}
	}

	userID := deps.UserIDFromValues(values)
	if userID == 0 {
		return RefreshResult{Failure: RefreshFailureIdentity, Err: errors.New("user id unresolved")}
	}

	claims, err := deps.ParseRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err, UserID: userID}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, strconv.FormatInt(userID, 10)); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, UserID: userID, SessionID: claims.SID}
		}
	}

	failure := RefreshFailureStore
	var sessionID string
	err = deps.Transact(ctx, func(tx *gorm.DB) error {
		if _, err := deps.Users.FindByUserID(ctx, tx, userID); err != nil {
			if errors.Is(err, stores.ErrNotFound) {
				failure = RefreshFailureUserNotFound
			}
			return err
		}
		sess, err := deps.Sessions.FindByUserID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, stores.ErrNotFound) {
				failure = RefreshFailureSessionNotFound
			}
			return err
		}
		if claims.UID != userID || claims.SID != sess.ID {
			failure = RefreshFailureMismatch
			return errors.New("refresh token not bound to current session")
		}
		sessionID = sess.ID
		return nil
	})
	if err != nil {
		return RefreshResult{Failure: failure, Err: err, UserID: userID, SessionID: claims.SID}
	}

	if deps.IsRevoked != nil {
		revoked, err := deps.IsRevoked(ctx, sessionID)
		if err != nil {
			warn(deps.Warn, "goMiniAuth: denylist lookup failed", "session_id", sessionID, "error", err)
		} else if revoked {
			return RefreshResult{
				Failure:   RefreshFailureRevoked,
				Err:       errors.New("session revoked"),
				UserID:    userID,
				SessionID: sessionID,
			}
		}
	}

	tokens, err := deps.IssuePair(userID, sessionID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: userID, SessionID: sessionID}
	}

	return RefreshResult{
		Failure:   RefreshFailureNone,
		UserID:    userID,
		SessionID: sessionID,
		Tokens:    tokens,
	}
}
