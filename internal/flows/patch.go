package flows

import (
	"math"

	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/datatypes"
)

// PatchPolicy names the business rule used to merge a session patch.
type PatchPolicy int

const (
	// PatchOverwrite replaces each patched field and leaves the rest unchanged.
	PatchOverwrite PatchPolicy = iota
	// PatchSubscriptionGrant behaves like PatchOverwrite with two cross
	// effects: enabling the subscription without an explicit credit value
	// adds the grant to the credits, and an explicit credit value of 0
	// without an explicit subscription value turns the subscription off.
	PatchSubscriptionGrant
)

// Patch carries the optional fields of a session update. Nil means "not
// patched".
type Patch struct {
	SubscriptionStatus *bool
	CreditsRemaining   *float64
	Preferences        []byte
	SessionMetadata    []byte
}

// Empty reports whether p patches nothing.
func (p Patch) Empty() bool {
	return p.SubscriptionStatus == nil &&
		p.CreditsRemaining == nil &&
		p.Preferences == nil &&
		p.SessionMetadata == nil
}

// ApplyPatch returns current merged with p under policy. current is not
// modified.
func ApplyPatch(current session.Session, p Patch, policy PatchPolicy, grant float64) session.Session {
	next := *current.Clone()

	if p.SubscriptionStatus != nil {
		next.SubscriptionStatus = *p.SubscriptionStatus
	}
	if p.CreditsRemaining != nil {
		next.CreditsRemaining = *p.CreditsRemaining
	}
	if p.Preferences != nil {
		next.Preferences = datatypes.JSON(append([]byte(nil), p.Preferences...))
	}
	if p.SessionMetadata != nil {
		next.SessionMetadata = datatypes.JSON(append([]byte(nil), p.SessionMetadata...))
	}

	if policy == PatchSubscriptionGrant {
		if p.SubscriptionStatus == nil && p.CreditsRemaining != nil && *p.CreditsRemaining == 0 {
			next.SubscriptionStatus = false
		}
		if p.CreditsRemaining == nil && p.SubscriptionStatus != nil && *p.SubscriptionStatus {
			next.CreditsRemaining = current.CreditsRemaining + grant
		}
	}
	return next
}

// DerivedFieldsChanged reports whether the user aggregates must follow a
// session change.
func DerivedFieldsChanged(before, after session.Session) bool {
	return before.CreditsRemaining != after.CreditsRemaining ||
		before.SubscriptionStatus != after.SubscriptionStatus
}

// DeriveUser recomputes the user aggregates from a session change. The user
// mirrors the new subscription flag and remaining credits; a positive credit
// delta is added to TotalCredits, which never decreases.
func DeriveUser(user session.User, before, after session.Session) session.User {
	next := user
	next.SubscriptionStatus = after.SubscriptionStatus
	// Round both sides before differencing so a run of fractional changes
	// adds up to the same total as one change over the same range.
	next.CreditsRemaining = int64(math.Round(after.CreditsRemaining))
	if delta := next.CreditsRemaining - int64(math.Round(before.CreditsRemaining)); delta > 0 {
		next.TotalCredits += delta
	}
	return next
}
