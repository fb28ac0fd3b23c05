package internaldefs

import (
	goMiniAuth "github.com/MrEthical07/goMiniAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goMiniAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   goMiniAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for events lost to dispatcher
// backpressure.
const AuditDroppedName = "miniauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goMiniAuth.MetricLoginSuccess, Name: "miniauth_login_success_total", Help: "Successful logins."},
	{ID: goMiniAuth.MetricLoginFailure, Name: "miniauth_login_failure_total", Help: "Failed logins."},
	{ID: goMiniAuth.MetricLoginRateLimited, Name: "miniauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goMiniAuth.MetricUserRegistered, Name: "miniauth_user_registered_total", Help: "Users created on first login."},
	{ID: goMiniAuth.MetricRefreshSuccess, Name: "miniauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goMiniAuth.MetricRefreshFailure, Name: "miniauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goMiniAuth.MetricRefreshRateLimited, Name: "miniauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: goMiniAuth.MetricSessionMismatch, Name: "miniauth_session_mismatch_total", Help: "Refresh tokens whose session id no longer matches the stored session."},
	{ID: goMiniAuth.MetricValidateSuccess, Name: "miniauth_validate_success_total", Help: "Accepted access tokens."},
	{ID: goMiniAuth.MetricValidateFailure, Name: "miniauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: goMiniAuth.MetricRevokedTokenRejected, Name: "miniauth_revoked_token_rejected_total", Help: "Access tokens rejected by the revocation denylist."},
	{ID: goMiniAuth.MetricSessionCacheHit, Name: "miniauth_session_cache_hit_total", Help: "Session reads served from the cache."},
	{ID: goMiniAuth.MetricSessionCacheMiss, Name: "miniauth_session_cache_miss_total", Help: "Session reads that fell through to the database."},
	{ID: goMiniAuth.MetricSessionCacheError, Name: "miniauth_session_cache_error_total", Help: "Session cache operations that failed."},
	{ID: goMiniAuth.MetricSessionCacheEvict, Name: "miniauth_session_cache_evict_total", Help: "Session cache entries evicted."},
	{ID: goMiniAuth.MetricSessionUpdated, Name: "miniauth_session_updated_total", Help: "Applied session patches."},
	{ID: goMiniAuth.MetricSessionUpdateFailure, Name: "miniauth_session_update_failure_total", Help: "Failed session patches."},
	{ID: goMiniAuth.MetricSessionConflict, Name: "miniauth_session_conflict_total", Help: "Session patches lost to a concurrent writer."},
	{ID: goMiniAuth.MetricLogout, Name: "miniauth_logout_total", Help: "Logout operations."},
	{ID: goMiniAuth.MetricRateLimitHit, Name: "miniauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goMiniAuth.MetricLoginLatency, Name: "miniauth_login_latency_seconds", Help: "Login latency histogram."},
	{ID: goMiniAuth.MetricRefreshLatency, Name: "miniauth_refresh_latency_seconds", Help: "Refresh latency histogram."},
	{ID: goMiniAuth.MetricValidateLatency, Name: "miniauth_validate_latency_seconds", Help: "Access validation latency histogram."},
	{ID: goMiniAuth.MetricGetSessionLatency, Name: "miniauth_get_session_latency_seconds", Help: "Session read latency histogram."},
	{ID: goMiniAuth.MetricSetSessionLatency, Name: "miniauth_set_session_latency_seconds", Help: "Session patch latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's fixed
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds instrument-safe spellings of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array. Missing buckets are 0.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
