package goMiniAuth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goMiniAuth/internal/flows"
	"github.com/MrEthical07/goMiniAuth/jwt"
	"github.com/MrEthical07/goMiniAuth/session"
)

// TokenPair is the credential pair returned by [Engine.Login] and
// [Engine.Refresh]. Both tokens are bound to the same (user, session).
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims is the decoded identity of a valid access credential.
type Claims struct {
	UserID    int64     `json:"uid"`
	SessionID string    `json:"sid"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func claimsFromJWT(c *jwt.Claims) *Claims {
	out := &Claims{UserID: c.UID, SessionID: c.SID}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// SessionView is the externally visible form of a user's session.
type SessionView struct {
	UserID              int64           `json:"user_id"`
	SessionID           string          `json:"session_id"`
	SubscriptionStatus  bool            `json:"subscription_status"`
	CreditsRemaining    float64         `json:"credits_remaining"`
	Preferences         json.RawMessage `json:"preferences"`
	SessionMetadata     json.RawMessage `json:"session_metadata"`
	LastActiveTimestamp int64           `json:"last_active_timestamp"`
}

func viewOf(s *session.Session) *SessionView {
	return &SessionView{
		UserID:              s.UserID,
		SessionID:           s.ID,
		SubscriptionStatus:  s.SubscriptionStatus,
		CreditsRemaining:    s.CreditsRemaining,
		Preferences:         rawJSON(s.Preferences),
		SessionMetadata:     rawJSON(s.SessionMetadata),
		LastActiveTimestamp: s.LastActiveTimestamp,
	}
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return append(json.RawMessage(nil), b...)
}

// SessionPatch is a partial session update. Nil fields are left unchanged.
// Preferences and SessionMetadata replace the stored object as a whole.
type SessionPatch struct {
	SubscriptionStatus *bool           `json:"subscription_status,omitempty"`
	CreditsRemaining   *float64        `json:"credits_remaining,omitempty"`
	Preferences        json.RawMessage `json:"preferences,omitempty"`
	SessionMetadata    json.RawMessage `json:"session_metadata,omitempty"`
}

func (p SessionPatch) toFlow() internalflows.Patch {
	out := internalflows.Patch{
		SubscriptionStatus: p.SubscriptionStatus,
		CreditsRemaining:   p.CreditsRemaining,
	}
	if p.Preferences != nil {
		out.Preferences = []byte(p.Preferences)
	}
	if p.SessionMetadata != nil {
		out.SessionMetadata = []byte(p.SessionMetadata)
	}
	return out
}

// PatchPolicy names the rule used to merge a [SessionPatch].
type PatchPolicy int

const (
	// PatchOverwrite replaces each patched field and nothing else.
	PatchOverwrite PatchPolicy = iota
	// PatchSubscriptionGrant enables the subscription-grant cross effects:
	// turning the subscription on without a credit value adds
	// SessionConfig.GrantCredits, and setting credits to 0 without a
	// subscription value turns the subscription off.
	PatchSubscriptionGrant
)

func (p PatchPolicy) String() string {
	switch p {
	case PatchOverwrite:
		return "overwrite"
	case PatchSubscriptionGrant:
		return "subscription_grant"
	default:
		return fmt.Sprintf("PatchPolicy(%d)", int(p))
	}
}

// ParsePatchPolicy maps "overwrite" and "subscription_grant" to their
// policies.
func ParsePatchPolicy(s string) (PatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return PatchOverwrite, nil
	case "subscription_grant":
		return PatchSubscriptionGrant, nil
	default:
		return 0, fmt.Errorf("%w: unknown patch policy %q", ErrInvalidConfig, s)
	}
}

func (p PatchPolicy) toFlow() internalflows.PatchPolicy {
	if p == PatchSubscriptionGrant {
		return internalflows.PatchSubscriptionGrant
	}
	return internalflows.PatchOverwrite
}
