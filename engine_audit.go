package goMiniAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventUserRegistered     = "user_registered"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventSessionMismatch    = "refresh_session_mismatch"
	auditEventSessionUpdated     = "session_updated"
	auditEventSessionUpdateFail  = "session_update_failure"
	auditEventLogout             = "logout"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventRevokedTokenUsed   = "revoked_token_used"
)

// AuditErrorCode is the stable error label written into AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidSignature AuditErrorCode = "invalid_signature"
	auditErrInvalidIdentity  AuditErrorCode = "invalid_identity"
	auditErrSessionMismatch  AuditErrorCode = "session_mismatch"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrUserNotFound     AuditErrorCode = "user_not_found"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrConflict         AuditErrorCode = "conflict"
	auditErrValidation       AuditErrorCode = "validation"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID int64,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, userID int64) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, userID, "", nil, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSignatureInvalid):
		return auditErrInvalidSignature
	case errors.Is(err, ErrIdentityInvalid):
		return auditErrInvalidIdentity
	case errors.Is(err, ErrSessionMismatch):
		return auditErrSessionMismatch
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionConflict):
		return auditErrConflict
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrStore):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
