package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport failure of the cache.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is the typed cache gateway for a single key family.
//
// Store is safe for concurrent use when the underlying client is.
type Store[V any] struct {
	redis  redis.UniversalClient
	family KeyFamily[V]
}

// NewStore binds a Redis client to family.
func NewStore[V any](rdb redis.UniversalClient, family KeyFamily[V]) (*Store[V], error) {
	if rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	if err := family.validate(); err != nil {
		return nil, err
	}
	return &Store[V]{redis: rdb, family: family}, nil
}

// Set serializes value and writes it with SET followed by EXPIRE.
//
// The two commands are separate round trips. A failure between them leaves
// a key without TTL; callers on transactional write paths delete the key
// when Set returns an error.
//
//	Performance: 2 Redis round trips.
func (s *Store[V]) Set(ctx context.Context, id string, value *V) error {
	data, err := s.family.encode(value)
	if err != nil {
		return err
	}

	key := s.family.Key(id)
	if err := s.redis.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Expire(ctx, key, s.family.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SetIfAbsent writes value with its TTL only when id is not cached, in one
// SET NX EX command. stored is false when another writer got there first.
//
//	Performance: 1 Redis round trip.
func (s *Store[V]) SetIfAbsent(ctx context.Context, id string, value *V) (stored bool, err error) {
	data, err := s.family.encode(value)
	if err != nil {
		return false, err
	}

	stored, err = s.redis.SetNX(ctx, s.family.Key(id), data, s.family.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return stored, nil
}

// Get returns the cached value for id. found is false on a miss. A value
// that cannot be decoded yields [ErrCorruptEntry].
//
//	Performance: 1 Redis GET.
func (s *Store[V]) Get(ctx context.Context, id string) (*V, bool, error) {
	data, err := s.redis.Get(ctx, s.family.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	v, err := s.family.decode(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Delete removes id and reports whether a key existed.
func (s *Store[V]) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Del(ctx, s.family.Key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Exists reports whether id is cached.
func (s *Store[V]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.family.Key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of id in whole seconds, using the Redis
// conventions -1 (no expiry) and -2 (missing key).
func (s *Store[V]) TTL(ctx context.Context, id string) (int64, error) {
	d, err := s.redis.TTL(ctx, s.family.Key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if d < 0 {
		return int64(d), nil
	}
	return int64(d / time.Second), nil
}
