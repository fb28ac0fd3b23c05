package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type revocation struct {
	RevokedAt int64 `json:"revoked_at"`
}

// Denylist records revoked session ids until every access token that may
// carry them has expired.
type Denylist struct {
	store *Store[revocation]
	now   func() time.Time
}

// NewDenylist creates a denylist under prefix. ttl should equal the access
// token lifetime.
func NewDenylist(rdb redis.UniversalClient, prefix string, ttl time.Duration) (*Denylist, error) {
	store, err := NewStore(rdb, KeyFamily[revocation]{Prefix: prefix, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &Denylist{store: store, now: time.Now}, nil
}

// Revoke marks sessionID as revoked.
func (d *Denylist) Revoke(ctx context.Context, sessionID string) error {
	return d.store.Set(ctx, sessionID, &revocation{RevokedAt: d.now().Unix()})
}

// IsRevoked reports whether sessionID is on the denylist.
func (d *Denylist) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	return d.store.Exists(ctx, sessionID)
}
