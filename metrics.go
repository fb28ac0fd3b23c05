package goMiniAuth

import internalmetrics "github.com/MrEthical07/goMiniAuth/internal/metrics"

// MetricID identifies one engine counter or latency histogram.
type MetricID = internalmetrics.MetricID

// Metrics is the engine's in-process counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is returned by [Engine.MetricsSnapshot].
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited     = internalmetrics.MetricLoginRateLimited
	MetricUserRegistered       = internalmetrics.MetricUserRegistered
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricRefreshRateLimited   = internalmetrics.MetricRefreshRateLimited
	MetricSessionMismatch      = internalmetrics.MetricSessionMismatch
	MetricValidateSuccess      = internalmetrics.MetricValidateSuccess
	MetricValidateFailure      = internalmetrics.MetricValidateFailure
	MetricRevokedTokenRejected = internalmetrics.MetricRevokedTokenRejected
	MetricSessionCacheHit      = internalmetrics.MetricSessionCacheHit
	MetricSessionCacheMiss     = internalmetrics.MetricSessionCacheMiss
	MetricSessionCacheError    = internalmetrics.MetricSessionCacheError
	MetricSessionCacheEvict    = internalmetrics.MetricSessionCacheEvict
	MetricSessionUpdated       = internalmetrics.MetricSessionUpdated
	MetricSessionUpdateFailure = internalmetrics.MetricSessionUpdateFailure
	MetricSessionConflict      = internalmetrics.MetricSessionConflict
	MetricLogout               = internalmetrics.MetricLogout
	MetricRateLimitHit         = internalmetrics.MetricRateLimitHit

	MetricLoginLatency      = internalmetrics.MetricLoginLatency
	MetricRefreshLatency    = internalmetrics.MetricRefreshLatency
	MetricValidateLatency   = internalmetrics.MetricValidateLatency
	MetricGetSessionLatency = internalmetrics.MetricGetSessionLatency
	MetricSetSessionLatency = internalmetrics.MetricSetSessionLatency
)

// NewMetrics builds a counter set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(cfg.Enabled, cfg.EnableLatencyHistograms)
}
