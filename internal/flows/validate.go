package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goMiniAuth/jwt"
)

// ValidateFailureKind classifies access validation failures for root-level
// mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureToken
	ValidateFailureRevoked
)

// ValidateResult returns either claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	ParseAccess func(string) (*jwt.Claims, error)
	IsRevoked   func(ctx context.Context, sessionID string) (bool, error)
	Warn        func(string, ...any)
}

// RunValidate checks an access token and, when a denylist is configured,
// rejects revoked session ids. A failing denylist lookup does not reject the
// token.
func RunValidate(ctx context.Context, tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureToken, Err: err}
	}

	if deps.IsRevoked != nil {
		revoked, err := deps.IsRevoked(ctx, claims.SID)
		if err != nil {
			warn(deps.Warn, "goMiniAuth: denylist lookup failed", "session_id", claims.SID, "error", err)
		} else if revoked {
			return ValidateResult{Failure: ValidateFailureRevoked, Err: errors.New("session revoked"), Claims: claims}
		}
	}

	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}
