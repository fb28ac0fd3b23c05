package rate

import "errors"

var (
	// ErrRateLimited is returned when the attempt budget of the current window
	// is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps counter transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
