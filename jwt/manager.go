package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for any signature, expiry or shape failure.
var ErrTokenInvalid = errors.New("token invalid")

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
const MinSecretLength = 32

// Kind selects which secret and TTL a token is issued with.
type Kind uint8

const (
	// KindAccess marks short-lived bearer credentials.
	KindAccess Kind = iota + 1
	// KindRefresh marks credentials accepted only by the refresh flow.
	KindRefresh
)

// Config is the immutable codec configuration. It is constructed once at
// startup and copied into the [Manager].
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// TimeFunc overrides the clock used for iat/exp. Nil means time.Now.
	TimeFunc func() time.Time
}

// Claims is the claim set embedded in both token kinds.
type Claims struct {
	UID int64  `json:"uid"`
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Pair is an issued access/refresh credential pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Manager issues and validates credential pairs.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a codec bound to it.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.AccessSecret) < MinSecretLength {
		return nil, errors.New("access secret too short")
	}
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, errors.New("refresh secret too short")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}

	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)
	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

// IssuePair signs a fresh access and refresh token for (uid, sid).
func (m *Manager) IssuePair(uid int64, sid string) (Pair, error) {
	access, err := m.Issue(KindAccess, uid, sid)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.Issue(KindRefresh, uid, sid)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Issue signs a single token of the given kind.
func (m *Manager) Issue(kind Kind, uid int64, sid string) (string, error) {
	secret, ttl, err := m.keyFor(kind)
	if err != nil {
		return "", err
	}
	return issueAt(m.now(), uid, sid, ttl, secret, m.config.Issuer)
}

// ParseAccess validates an access token.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(KindAccess, tokenStr)
}

// ParseRefresh validates a refresh token.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return m.parse(KindRefresh, tokenStr)
}

func (m *Manager) parse(kind Kind, tokenStr string) (*Claims, error) {
	secret, _, err := m.keyFor(kind)
	if err != nil {
		return nil, err
	}
	return validate(tokenStr, secret, m.config.Issuer, m.now)
}

func (m *Manager) keyFor(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return m.config.AccessSecret, m.config.AccessTTL, nil
	case KindRefresh:
		return m.config.RefreshSecret, m.config.RefreshTTL, nil
	default:
		return nil, 0, errors.New("unknown token kind")
	}
}

func (m *Manager) now() time.Time {
	if m.config.TimeFunc != nil {
		return m.config.TimeFunc()
	}
	return time.Now()
}

// Issue signs {iat, exp, uid, sid} with secret. ttl must be positive.
func Issue(uid int64, sid string, ttl time.Duration, secret []byte) (string, error) {
	return issueAt(time.Now(), uid, sid, ttl, secret, "")
}

// Validate checks signature, structure and expiry of tokenStr against secret.
// Every failure wraps [ErrTokenInvalid].
func Validate(tokenStr string, secret []byte) (*Claims, error) {
	return validate(tokenStr, secret, "", time.Now)
}

func issueAt(now time.Time, uid int64, sid string, ttl time.Duration, secret []byte, issuer string) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if uid <= 0 || sid == "" {
		return "", errors.New("uid and sid are required")
	}

	claims := Claims{
		UID: uid,
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func validate(tokenStr string, secret []byte, issuer string, now func() time.Time) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, jwt.ErrTokenInvalidClaims)
	}
	if claims.UID <= 0 || claims.SID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}
	return claims, nil
}
