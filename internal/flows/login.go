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

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureSignature
	LoginFailureIdentity
	LoginFailureRateLimited
	LoginFailureSessionMissing
	LoginFailureStore
	LoginFailureIssue
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	UserID    int64
	SessionID string
	Created   bool
	Tokens    jwt.Pair
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	CheckPayload     func(string) (url.Values, error)
	UserIDFromValues func(url.Values) int64
	RateLimiter      AttemptLimiter
	Transact         Transactor
	Users            UserRepository
	Sessions         SessionRepository
	IssuePair        func(uid int64, sid string) (jwt.Pair, error)
}

// RunLogin verifies the platform payload, registers the user on first
// login and issues a credential pair bound to (userID, sessionID).
func RunLogin(ctx context.Context, payload string, deps LoginDeps) LoginResult {
	values, err := deps.CheckPayload(payload)
	if err != nil {
		return LoginResult{Failure: LoginFailureSignature, Err: err}
	}

	userID := deps.UserIDFromValues(values)
	if userID == 0 {
		return LoginResult{Failure: LoginFailureIdentity, Err: errors.New("user id unresolved")}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, strconv.FormatInt(userID, 10)); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err, UserID: userID}
		}
	}

	var (
		sessionID string
		created   bool
		failure   = LoginFailureStore
	)
	err = deps.Transact(ctx, func(tx *gorm.DB) error {
		exists, err := deps.Users.ExistsByUserID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := deps.Users.Save(ctx, tx, userID); err != nil {
				return err
			}
			sessionID, err = deps.Sessions.Save(ctx, tx, userID)
			if err != nil {
				return err
			}
			created = true
			return nil
		}

		sess, err := deps.Sessions.FindByUserID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, stores.ErrNotFound) {
				failure = LoginFailureSessionMissing
			}
			return err
		}
		sessionID = sess.ID
		return nil
	})
	if err != nil {
		return LoginResult{Failure: failure, Err: err, UserID: userID}
	}

	tokens, err := deps.IssuePair(userID, sessionID)
	if err != nil {
		return LoginResult{
			Failure:   LoginFailureIssue,
			Err:       err,
			UserID:    userID,
			SessionID: sessionID,
			Created:   created,
		}
	}

	return LoginResult{
		Failure:   LoginFailureNone,
		UserID:    userID,
		SessionID: sessionID,
		Created:   created,
		Tokens:    tokens,
	}
}
