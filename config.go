package goMiniAuth

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/MrEthical07/goMiniAuth/jwt"
	"github.com/MrEthical07/goMiniAuth/session"
)

// Config is the full engine configuration. Build it with [DefaultConfig],
// adjust the fields you need and pass it to [Builder.WithConfig]; the builder
// keeps a deep copy.
type Config struct {
	Platform   PlatformConfig
	JWT        JWTConfig
	Cache      CacheConfig
	Session    SessionConfig
	RateLimit  RateLimitConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
PLATFORM CONFIG
====================================
*/

// PlatformConfig holds the messaging-platform bot credentials used to verify
// initData.
type PlatformConfig struct {
	BotToken string
	// MaxAuthAge rejects initData whose auth_date is older than this window.
	// Zero disables the check.
	MaxAuthAge time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the access and refresh credentials. The secrets must
// be at least 32 bytes and must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

/*
====================================
CACHE CONFIG
====================================
*/

type CacheConfig struct {
	SessionKeyPrefix string
	SessionTTL       time.Duration
	RevokedKeyPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig holds registration defaults and the update policy.
type SessionConfig struct {
	// SeedCredits is granted to every new user and session.
	SeedCredits int64
	// DefaultPreferences and DefaultMetadata are the JSON objects stored on a
	// new session.
	DefaultPreferences json.RawMessage
	DefaultMetadata    json.RawMessage
	PatchPolicy        PatchPolicy
	// GrantCredits is added by PatchSubscriptionGrant when a subscription is
	// turned on.
	GrantCredits float64
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig throttles login and refresh per platform user id.
type RateLimitConfig struct {
	Enabled       bool
	KeyPrefix     string
	LoginMax      int
	LoginWindow   time.Duration
	RefreshMax    int
	RefreshWindow time.Duration
	// FailClosed rejects attempts when Redis is unreachable. The default
	// admits them and logs a warning.
	FailClosed bool
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig enables the session-id denylist written by
// [Engine.Logout] and checked by [Engine.ValidateAccess].
type RevocationConfig struct {
	Enabled bool
}

/*
====================================
AUDIT & METRICS
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	defaultSeedCredits  = 15
	defaultGrantCredits = 1000
)

var (
	defaultPreferences = json.RawMessage(`{"default_mode":"GPT-4o","notifications":true}`)
	defaultMetadata    = json.RawMessage(`{"last_mode_used":"GPT-4o","recent_actions":["request_made"]}`)
)

// DefaultConfig returns a configuration with every non-secret field set.
// Platform.BotToken and both JWT secrets must still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			SessionKeyPrefix: session.DefaultSessionPrefix,
			SessionTTL:       session.DefaultSessionTTL,
			RevokedKeyPrefix: session.DefaultRevokedPrefix,
		},
		Session: SessionConfig{
			SeedCredits:        defaultSeedCredits,
			DefaultPreferences: append(json.RawMessage(nil), defaultPreferences...),
			DefaultMetadata:    append(json.RawMessage(nil), defaultMetadata...),
			PatchPolicy:        PatchOverwrite,
			GrantCredits:       defaultGrantCredits,
		},
		RateLimit: RateLimitConfig{
			Enabled:       false,
			KeyPrefix:     "rl",
			LoginMax:      10,
			LoginWindow:   time.Minute,
			RefreshMax:    30,
			RefreshWindow: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.Session.DefaultPreferences = cloneBytes(cfg.Session.DefaultPreferences)
	out.Session.DefaultMetadata = cloneBytes(cfg.Session.DefaultMetadata)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Validate checks cfg and returns an error wrapping [ErrInvalidConfig] for
// the first problem found.
func (c *Config) Validate() error {
	// Platform
	if c.Platform.BotToken == "" {
		return invalidConfig("Platform BotToken is required")
	}
	if c.Platform.MaxAuthAge < 0 {
		return invalidConfig("Platform MaxAuthAge must be >= 0")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return invalidConfig("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return invalidConfig("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return invalidConfig("JWT RefreshTTL must be >= AccessTTL")
	}
	if len(c.JWT.AccessSecret) < jwt.MinSecretLength || len(c.JWT.RefreshSecret) < jwt.MinSecretLength {
		return invalidConfig(fmt.Sprintf("JWT secrets must be at least %d bytes", jwt.MinSecretLength))
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return invalidConfig("JWT AccessSecret and RefreshSecret must differ")
	}

	// Cache
	if c.Cache.SessionKeyPrefix == "" {
		return invalidConfig("Cache SessionKeyPrefix is required")
	}
	if c.Cache.SessionTTL < time.Second {
		return invalidConfig("Cache SessionTTL must be >= 1s")
	}
	if c.Revocation.Enabled && c.Cache.RevokedKeyPrefix == "" {
		return invalidConfig("Cache RevokedKeyPrefix is required when revocation is enabled")
	}
	if c.Revocation.Enabled && c.Cache.RevokedKeyPrefix == c.Cache.SessionKeyPrefix {
		return invalidConfig("Cache RevokedKeyPrefix must differ from SessionKeyPrefix")
	}

	// Session
	if c.Session.SeedCredits < 0 {
		return invalidConfig("Session SeedCredits must be >= 0")
	}
	if c.Session.GrantCredits < 0 || math.IsNaN(c.Session.GrantCredits) || math.IsInf(c.Session.GrantCredits, 0) {
		return invalidConfig("Session GrantCredits must be a finite value >= 0")
	}
	if c.Session.PatchPolicy != PatchOverwrite && c.Session.PatchPolicy != PatchSubscriptionGrant {
		return invalidConfig("Session PatchPolicy is unknown")
	}
	if !isJSONObject(c.Session.DefaultPreferences) {
		return invalidConfig("Session DefaultPreferences must be a JSON object")
	}
	if !isJSONObject(c.Session.DefaultMetadata) {
		return invalidConfig("Session DefaultMetadata must be a JSON object")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.LoginMax <= 0 || c.RateLimit.LoginWindow <= 0 {
			return invalidConfig("RateLimit LoginMax and LoginWindow must be > 0")
		}
		if c.RateLimit.RefreshMax <= 0 || c.RateLimit.RefreshWindow <= 0 {
			return invalidConfig("RateLimit RefreshMax and RefreshWindow must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalidConfig("Audit BufferSize must be > 0")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

func isJSONObject(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	return obj != nil
}
