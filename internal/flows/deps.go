package flows

import (
	"context"

	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/gorm"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login        LoginDeps
	Refresh      RefreshDeps
	Validate     ValidateDeps
	ReadSession  SessionReadDeps
	WriteSession SessionWriteDeps
	Rotate       RotateDeps
}

// Transactor runs fn inside a database transaction, committing when fn
// returns nil and rolling back otherwise.
type Transactor func(ctx context.Context, fn func(tx *gorm.DB) error) error

// UserRepository is the subset of the user repository used by flows.
type UserRepository interface {
	FindByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*session.User, error)
	ExistsByUserID(ctx context.Context, tx *gorm.DB, userID int64) (bool, error)
	Save(ctx context.Context, tx *gorm.DB, userID int64) (string, error)
	Update(ctx context.Context, tx *gorm.DB, user *session.User) error
}

// SessionRepository is the subset of the session repository used by flows.
type SessionRepository interface {
	FindByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*session.Session, error)
	FindByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*session.Session, error)
	Save(ctx context.Context, tx *gorm.DB, userID int64) (string, error)
	Update(ctx context.Context, tx *gorm.DB, sess *session.Session) error
	Rotate(ctx context.Context, tx *gorm.DB, sess *session.Session) (string, error)
}

// SessionCache is the cache gateway for the session key family.
type SessionCache interface {
	Get(ctx context.Context, id string) (*session.Session, bool, error)
	Set(ctx context.Context, id string, value *session.Session) error
	SetIfAbsent(ctx context.Context, id string, value *session.Session) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// AttemptLimiter throttles login and refresh attempts per platform user.
type AttemptLimiter interface {
	CheckLogin(ctx context.Context, userKey string) error
	CheckRefresh(ctx context.Context, userKey string) error
}

func warn(fn func(string, ...any), msg string, args ...any) {
	if fn != nil {
		fn(msg, args...)
	}
}
