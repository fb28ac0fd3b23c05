package goMiniAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goMiniAuth/internal/audit"
	internalflows "github.com/MrEthical07/goMiniAuth/internal/flows"
	"github.com/MrEthical07/goMiniAuth/internal/rate"
	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/initdata"
	"github.com/MrEthical07/goMiniAuth/jwt"
	"github.com/MrEthical07/goMiniAuth/session"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Engine is the authentication and session core. It is safe for concurrent
// use once built by [Builder.Build].
type Engine struct {
	config       Config
	db           *gorm.DB
	logger       *slog.Logger
	clock        func() time.Time
	verifier     *initdata.Verifier
	jwtManager   *jwt.Manager
	sessionCache *session.Store[session.Session]
	denylist     *session.Denylist
	rateLimiter  *rate.Limiter
	users        *stores.UserRepo
	sessions     *stores.SessionRepo
	audit        *internalaudit.Dispatcher
	metrics      *Metrics

	// reads coalesces concurrent cache misses for the same user.
	reads singleflight.Group
}

// Close flushes pending audit events. The Redis client and database handle
// belong to the caller and are left open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

func (e *Engine) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return e.db.WithContext(ctx).Transaction(fn)
}

func (e *Engine) ready() bool {
	return e != nil && e.db != nil && e.sessionCache != nil && e.jwtManager != nil
}

// Login verifies the signed initData payload, registers the user on first
// login and returns a credential pair bound to the user's session.
func (e *Engine) Login(ctx context.Context, initData string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricLoginLatency, start)

	result := internalflows.RunLogin(ctx, initData, e.loginFlowDeps())
	if result.Failure != internalflows.LoginFailureNone {
		err := mapLoginFailure(result)
		if result.Failure == internalflows.LoginFailureRateLimited {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login", result.UserID)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, result.UserID, result.SessionID, err, nil)
		return nil, err
	}

	if result.Created {
		e.metricInc(MetricUserRegistered)
		e.emitAudit(ctx, auditEventUserRegistered, true, result.UserID, result.SessionID, nil, nil)
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, result.UserID, result.SessionID, nil, nil)

	return &TokenPair{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, nil
}

// Refresh re-verifies initData and exchanges a refresh token for a new pair
// bound to the same session. Tokens of a rotated session are rejected with
// [ErrSessionMismatch].
func (e *Engine) Refresh(ctx context.Context, initData, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricRefreshLatency, start)

	result := internalflows.RunRefresh(ctx, initData, refreshToken, e.refreshFlowDeps())
	if result.Failure != internalflows.RefreshFailureNone {
		err := mapRefreshFailure(result)
		switch result.Failure {
		case internalflows.RefreshFailureRateLimited:
			e.metricInc(MetricRefreshRateLimited)
			e.emitRateLimit(ctx, "refresh", result.UserID)
		case internalflows.RefreshFailureMismatch:
			e.metricInc(MetricSessionMismatch)
			e.emitAudit(ctx, auditEventSessionMismatch, false, result.UserID, result.SessionID, err, nil)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, result.UserID, result.SessionID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, result.UserID, result.SessionID, nil, nil)

	return &TokenPair{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, nil
}

// ValidateAccess checks a bearer access token and returns the identity it
// carries. With revocation enabled, tokens of a logged-out session are
// rejected while they are still unexpired.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer e.observe(MetricValidateLatency, start)

	result := internalflows.RunValidate(ctx, accessToken, e.validateFlowDeps())
	switch result.Failure {
	case internalflows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return claimsFromJWT(result.Claims), nil
	case internalflows.ValidateFailureRevoked:
		e.metricInc(MetricRevokedTokenRejected)
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventRevokedTokenUsed, false, result.Claims.UID, result.Claims.SID, ErrTokenInvalid, nil)
		return nil, fmt.Errorf("%w: session revoked", ErrTokenInvalid)
	default:
		e.metricInc(MetricValidateFailure)
		return nil, tokenError(result.Err)
	}
}

func mapLoginFailure(result internalflows.LoginResult) error {
	switch result.Failure {
	case internalflows.LoginFailureSignature:
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, result.Err)
	case internalflows.LoginFailureIdentity:
		return ErrIdentityInvalid
	case internalflows.LoginFailureRateLimited:
		return rateLimitError(ErrLoginRateLimited, result.Err)
	case internalflows.LoginFailureSessionMissing:
		return ErrSessionNotFound
	case internalflows.LoginFailureIssue:
		return fmt.Errorf("goMiniAuth: issue credentials: %w", result.Err)
	default:
		return storeError(result.Err)
	}
}

func mapRefreshFailure(result internalflows.RefreshResult) error {
	switch result.Failure {
	case internalflows.RefreshFailureSignature:
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, result.Err)
	case internalflows.RefreshFailureIdentity:
		return ErrIdentityInvalid
	case internalflows.RefreshFailureDecode:
		return tokenError(result.Err)
	case internalflows.RefreshFailureRateLimited:
		return rateLimitError(ErrRefreshRateLimited, result.Err)
	case internalflows.RefreshFailureUserNotFound:
		return ErrUserNotFound
	case internalflows.RefreshFailureSessionNotFound:
		return ErrSessionNotFound
	case internalflows.RefreshFailureMismatch:
		return ErrSessionMismatch
	case internalflows.RefreshFailureRevoked:
		return fmt.Errorf("%w: session revoked", ErrTokenInvalid)
	case internalflows.RefreshFailureIssue:
		return fmt.Errorf("goMiniAuth: issue credentials: %w", result.Err)
	default:
		return storeError(result.Err)
	}
}

func tokenError(err error) error {
	switch {
	case err == nil:
		return ErrTokenInvalid
	case errors.Is(err, ErrTokenInvalid):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func rateLimitError(sentinel, cause error) error {
	if cause == nil || errors.Is(cause, rate.ErrRateLimited) {
		return sentinel
	}
	// Limiter unreachable with fail-closed configured.
	return fmt.Errorf("%w: %v", sentinel, cause)
}

func storeError(err error) error {
	if err == nil {
		return ErrStore
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}
