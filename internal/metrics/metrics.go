package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or latency histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricUserRegistered
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRateLimited
	MetricSessionMismatch
	MetricValidateSuccess
	MetricValidateFailure
	MetricRevokedTokenRejected
	MetricSessionCacheHit
	MetricSessionCacheMiss
	MetricSessionCacheError
	MetricSessionCacheEvict
	MetricSessionUpdated
	MetricSessionUpdateFailure
	MetricSessionConflict
	MetricLogout
	MetricRateLimitHit

	// Latency histograms. Every ID from MetricLoginLatency on is a histogram.
	MetricLoginLatency
	MetricRefreshLatency
	MetricValidateLatency
	MetricGetSessionLatency
	MetricSetSessionLatency

	MetricIDCount
)

const (
	firstLatencyID = MetricLoginLatency

	// HistogramBuckets is the number of fixed latency buckets.
	HistogramBuckets = 8
	cacheLineSize    = 64
)

// IsLatency reports whether id names a latency histogram.
func IsLatency(id MetricID) bool {
	return id >= firstLatencyID && id < MetricIDCount
}

type histogram struct {
	buckets [HistogramBuckets]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and fixed-bucket histograms. A nil or
// disabled *Metrics ignores every write.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of all counters and, when latency is
// enabled, the non-cumulative bucket counts of each histogram.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(enabled, latency bool) *Metrics {
	return &Metrics{
		enabled:       enabled,
		enableLatency: enabled && latency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram id. Non-latency ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsLatency(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(firstLatencyID)),
		Histograms: make(map[MetricID][]uint64, int(MetricIDCount-firstLatencyID)),
	}
	for id := MetricID(0); id < firstLatencyID; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		for id := firstLatencyID; id < MetricIDCount; id++ {
			buckets := make([]uint64, HistogramBuckets)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
