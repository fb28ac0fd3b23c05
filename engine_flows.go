package goMiniAuth

import (
	internalflows "github.com/MrEthical07/goMiniAuth/internal/flows"
	"github.com/MrEthical07/goMiniAuth/initdata"
)

func (e *Engine) attemptLimiter() internalflows.AttemptLimiter {
	// A nil *rate.Limiter must not become a non-nil interface.
	if e.rateLimiter == nil {
		return nil
	}
	return e.rateLimiter
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		CheckPayload:     e.verifier.Check,
		UserIDFromValues: initdata.UserIDFromValues,
		RateLimiter:      e.attemptLimiter(),
		Transact:         e.transact,
		Users:            e.users,
		Sessions:         e.sessions,
		IssuePair:        e.jwtManager.IssuePair,
	}
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	deps := internalflows.RefreshDeps{
		CheckPayload:      e.verifier.Check,
		UserIDFromValues:  initdata.UserIDFromValues,
		ParseRefreshToken: e.jwtManager.ParseRefresh,
		RateLimiter:       e.attemptLimiter(),
		Transact:          e.transact,
		Users:             e.users,
		Sessions:          e.sessions,
		IssuePair:         e.jwtManager.IssuePair,
		Warn:              e.warn,
	}
	if e.denylist != nil {
		deps.IsRevoked = e.denylist.IsRevoked
	}
	return deps
}

func (e *Engine) validateFlowDeps() internalflows.ValidateDeps {
	deps := internalflows.ValidateDeps{
		ParseAccess: e.jwtManager.ParseAccess,
		Warn:        e.warn,
	}
	if e.denylist != nil {
		deps.IsRevoked = e.denylist.IsRevoked
	}
	return deps
}

func (e *Engine) sessionReadFlowDeps() internalflows.SessionReadDeps {
	return internalflows.SessionReadDeps{
		Cache:    e.sessionCache,
		Transact: e.transact,
		Sessions: e.sessions,
		Warn:     e.warn,
	}
}

func (e *Engine) sessionWriteFlowDeps() internalflows.SessionWriteDeps {
	return internalflows.SessionWriteDeps{
		Transact:     e.transact,
		Users:        e.users,
		Sessions:     e.sessions,
		Cache:        e.sessionCache,
		Policy:       e.config.Session.PatchPolicy.toFlow(),
		GrantCredits: e.config.Session.GrantCredits,
		Now:          e.now,
		Warn:         e.warn,
	}
}

func (e *Engine) rotateFlowDeps() internalflows.RotateDeps {
	deps := internalflows.RotateDeps{
		Transact: e.transact,
		Sessions: e.sessions,
		Cache:    e.sessionCache,
		Warn:     e.warn,
	}
	if e.denylist != nil {
		deps.Revoke = e.denylist.Revoke
	}
	return deps
}
