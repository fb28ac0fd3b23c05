package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrCorruptEntry is returned when a cached value cannot be decoded. It is a
// hard error, never a miss.
var ErrCorruptEntry = errors.New("cache entry corrupt")

const (
	// DefaultSessionPrefix is the key prefix for cached sessions.
	DefaultSessionPrefix = "SESSION_KEY_"
	// DefaultSessionTTL is the fixed lifetime of a cached session.
	DefaultSessionTTL = 600 * time.Second
	// DefaultRevokedPrefix is the key prefix for revoked session ids.
	DefaultRevokedPrefix = "REVOKED_SID_"
)

// Codec serializes values of a key family.
type Codec[V any] interface {
	Marshal(v *V) ([]byte, error)
	Unmarshal(data []byte, v *V) error
}

// JSONCodec encodes values as JSON.
type JSONCodec[V any] struct{}

// Marshal encodes v as JSON.
func (JSONCodec[V]) Marshal(v *V) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (JSONCodec[V]) Unmarshal(data []byte, v *V) error {
	return json.Unmarshal(data, v)
}

// KeyFamily fixes the key prefix, TTL and codec for one kind of cached value.
type KeyFamily[V any] struct {
	Prefix string
	TTL    time.Duration
	Codec  Codec[V]
}

// Key returns the cache key for id.
func (f KeyFamily[V]) Key(id string) string {
	return f.Prefix + id
}

func (f KeyFamily[V]) validate() error {
	if f.Prefix == "" {
		return errors.New("key family prefix must not be empty")
	}
	if f.TTL < time.Second {
		return errors.New("key family TTL must be at least one second")
	}
	return nil
}

func (f KeyFamily[V]) codec() Codec[V] {
	if f.Codec == nil {
		return JSONCodec[V]{}
	}
	return f.Codec
}

func (f KeyFamily[V]) encode(v *V) ([]byte, error) {
	data, err := f.codec().Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s value: %w", f.Prefix, err)
	}
	return data, nil
}

func (f KeyFamily[V]) decode(data []byte) (*V, error) {
	var v V
	if err := f.codec().Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &v, nil
}

// SessionFamily returns the Session key family. Sessions are keyed by the
// platform user id.
func SessionFamily(prefix string, ttl time.Duration) KeyFamily[Session] {
	return KeyFamily[Session]{Prefix: prefix, TTL: ttl}
}

// UserKey formats a platform user id as a key-family id.
func UserKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
