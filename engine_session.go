package goMiniAuth

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goMiniAuth/internal/flows"
)

// GetSession returns the session of userID, served from the cache when
// possible. Cache failures fall back to the database and are never returned.
// Concurrent misses for the same user share one database load.
func (e *Engine) GetSession(ctx context.Context, userID int64) (*SessionView, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrValidation)
	}
	start := time.Now()
	defer e.observe(MetricGetSessionLatency, start)

	// The shared load must not be cancelled by whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := e.reads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return internalflows.RunGetSession(loadCtx, userID, e.sessionReadFlowDeps()), nil
	})
	result := v.(internalflows.SessionReadResult)

	if result.CacheErr != nil {
		e.metricInc(MetricSessionCacheError)
	}
	if result.CacheHit {
		e.metricInc(MetricSessionCacheHit)
	} else {
		e.metricInc(MetricSessionCacheMiss)
	}

	if result.Failure != internalflows.SessionFailureNone {
		return nil, mapSessionFailure(result.Failure, result.Err)
	}
	return viewOf(result.Session), nil
}

// SetSession applies patch to the session of userID and returns the stored
// result. The database commit is authoritative; when the cache cannot be
// updated the cached entry is evicted instead.
func (e *Engine) SetSession(ctx context.Context, userID int64, patch SessionPatch) (*SessionView, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrValidation)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	start := time.Now()
	defer e.observe(MetricSetSessionLatency, start)

	result := internalflows.RunSetSession(ctx, userID, patch.toFlow(), e.sessionWriteFlowDeps())
	if result.CacheErr != nil {
		e.metricInc(MetricSessionCacheError)
	}
	if result.Evicted {
		e.metricInc(MetricSessionCacheEvict)
	}

	if result.Failure != internalflows.SessionFailureNone {
		err := mapSessionFailure(result.Failure, result.Err)
		if result.Failure == internalflows.SessionFailureConflict {
			e.metricInc(MetricSessionConflict)
		}
		e.metricInc(MetricSessionUpdateFailure)
		e.emitAudit(ctx, auditEventSessionUpdateFail, false, userID, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionUpdated)
	e.emitAudit(ctx, auditEventSessionUpdated, true, userID, result.Session.ID, nil, func() map[string]string {
		return patchMetadata(patch, result.UserUpdated)
	})
	return viewOf(result.Session), nil
}

// Logout rotates the session id of userID. Every credential bound to the old
// id is rejected from then on by Refresh and, with revocation enabled, by
// ValidateAccess. The user keeps the same session state under the new id.
func (e *Engine) Logout(ctx context.Context, userID int64) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrValidation)
	}

	result := internalflows.RunRotateSession(ctx, userID, e.rotateFlowDeps())
	if result.Failure != internalflows.SessionFailureNone {
		err := mapSessionFailure(result.Failure, result.Err)
		e.emitAudit(ctx, auditEventLogout, false, userID, result.OldSessionID, err, nil)
		return err
	}

	if result.Evicted {
		e.metricInc(MetricSessionCacheEvict)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, result.OldSessionID, nil, func() map[string]string {
		return map[string]string{
			"new_session_id": result.SessionID,
			"revoked":        strconv.FormatBool(result.Revoked),
		}
	})
	return nil
}

func mapSessionFailure(kind internalflows.SessionFailureKind, err error) error {
	switch kind {
	case internalflows.SessionFailureNotFound:
		return ErrSessionNotFound
	case internalflows.SessionFailureUserNotFound:
		return ErrUserNotFound
	case internalflows.SessionFailureConflict:
		return ErrSessionConflict
	default:
		return storeError(err)
	}
}

func validatePatch(p SessionPatch) error {
	if p.CreditsRemaining != nil {
		c := *p.CreditsRemaining
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return fmt.Errorf("%w: credits_remaining must be a finite value >= 0", ErrValidation)
		}
	}
	if p.Preferences != nil && !isJSONObject(p.Preferences) {
		return fmt.Errorf("%w: preferences must be a JSON object", ErrValidation)
	}
	if p.SessionMetadata != nil && !isJSONObject(p.SessionMetadata) {
		return fmt.Errorf("%w: session_metadata must be a JSON object", ErrValidation)
	}
	return nil
}

// patchMetadata lists which fields a patch touched. Values are not recorded.
func patchMetadata(p SessionPatch, userUpdated bool) map[string]string {
	fields := make([]string, 0, 4)
	if p.SubscriptionStatus != nil {
		fields = append(fields, "subscription_status")
	}
	if p.CreditsRemaining != nil {
		fields = append(fields, "credits_remaining")
	}
	if p.Preferences != nil {
		fields = append(fields, "preferences")
	}
	if p.SessionMetadata != nil {
		fields = append(fields, "session_metadata")
	}
	return map[string]string{
		"fields":       strings.Join(fields, ","),
		"user_updated": strconv.FormatBool(userUpdated),
	}
}
