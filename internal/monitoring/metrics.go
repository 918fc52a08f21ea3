package monitoring

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// sampleWindow is how many recent response times feed the percentiles.
const sampleWindow = 1000

// Metrics holds in-process counters for the HTTP surface and the scoring
// pipeline. Counter fields are updated atomically and may be read the same
// way.
type Metrics struct {
	RequestCount    int64
	ErrorCount      int64
	CacheHits       int64
	CacheMisses     int64
	RateLimitBlocks int64

	BatchesProcessed int64
	RecordsScored    int64
	RecordsFailed    int64
	BurnoutPredicted int64
	SchemaDrift      int64

	started time.Time
	latency latencyWindow

	byStatus labelCounts[int]
	// batches by input format (json, xlsx, csv)
	bySource labelCounts[string]
}

// latencyWindow keeps the most recent response times in a ring plus a
// running total over everything observed.
type latencyWindow struct {
	mu      sync.Mutex
	samples [sampleWindow]time.Duration
	next    int
	filled  int
	count   int64
	total   time.Duration
}

func (w *latencyWindow) add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = d
	w.next = (w.next + 1) % sampleWindow
	if w.filled < sampleWindow {
		w.filled++
	}
	w.count++
	w.total += d
}

func (w *latencyWindow) mean() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count == 0 {
		return 0
	}
	return w.total / time.Duration(w.count)
}

// percentile uses the nearest-rank-below method over the window.
func (w *latencyWindow) percentile(p float64) time.Duration {
	w.mu.Lock()
	sorted := slices.Clone(w.samples[:w.filled])
	w.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	i := min(int(float64(len(sorted)-1)*p/100.0), len(sorted)-1)
	return sorted[i]
}

func (w *latencyWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next, w.filled, w.count, w.total = 0, 0, 0, 0
}

type labelCounts[K comparable] struct {
	mu     sync.RWMutex
	counts map[K]int64
}

func (l *labelCounts[K]) inc(k K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = make(map[K]int64)
	}
	l.counts[k]++
}

func (l *labelCounts[K]) snapshot() map[K]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[K]int64, len(l.counts))
	maps.Copy(out, l.counts)
	return out
}

func (l *labelCounts[K]) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = nil
}

// NewMetrics creates an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// IncrementRateLimitBlock counts a request rejected by the rate limiter.
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// RecordBatch adds the outcome of one scored batch.
func (m *Metrics) RecordBatch(source string, scored, failed, burnout, drifted int) {
	atomic.AddInt64(&m.BatchesProcessed, 1)
	atomic.AddInt64(&m.RecordsScored, int64(scored))
	atomic.AddInt64(&m.RecordsFailed, int64(failed))
	atomic.AddInt64(&m.BurnoutPredicted, int64(burnout))
	atomic.AddInt64(&m.SchemaDrift, int64(drifted))
	m.bySource.inc(source)
}

// RecordResponseTime adds one request duration.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	m.latency.add(duration)
}

// RecordRequestByStatus counts a response by HTTP status code.
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.byStatus.inc(statusCode)
}

// GetPercentileResponseTime returns the p-th percentile (0-100) of the
// recent response times.
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	return m.latency.percentile(percentile)
}

// GetStatusCodeDistribution returns a copy of the per-status counts.
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	return m.byStatus.snapshot()
}

// GetSourceDistribution returns batch count by input format.
func (m *Metrics) GetSourceDistribution() map[string]int64 {
	return m.bySource.snapshot()
}

// GetStats renders every counter plus derived rates for /metrics.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errs := atomic.LoadInt64(&m.ErrorCount)
	hits := atomic.LoadInt64(&m.CacheHits)
	misses := atomic.LoadInt64(&m.CacheMisses)
	scored := atomic.LoadInt64(&m.RecordsScored)
	burnout := atomic.LoadInt64(&m.BurnoutPredicted)

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.started).Seconds(),
		"start_time":             m.started.Format(time.RFC3339),
		"total_requests":         requests,
		"error_count":            errs,
		"error_rate_percent":     percent(errs, requests),
		"cache_hits":             hits,
		"cache_misses":           misses,
		"cache_hit_rate_percent": percent(hits, hits+misses),
		"rate_limit_blocks":      atomic.LoadInt64(&m.RateLimitBlocks),

		"avg_response_time_ms":     millis(m.latency.mean()),
		"p50_response_time_ms":     millis(m.latency.percentile(50)),
		"p95_response_time_ms":     millis(m.latency.percentile(95)),
		"p99_response_time_ms":     millis(m.latency.percentile(99)),
		"status_code_distribution": m.GetStatusCodeDistribution(),

		"batches_processed":    atomic.LoadInt64(&m.BatchesProcessed),
		"batches_by_source":    m.GetSourceDistribution(),
		"records_scored":       scored,
		"records_failed":       atomic.LoadInt64(&m.RecordsFailed),
		"burnout_predicted":    burnout,
		"burnout_rate_percent": percent(burnout, scored),
		"schema_drift_records": atomic.LoadInt64(&m.SchemaDrift),
	}
}

// Reset zeroes every counter. Tests use it between cases.
func (m *Metrics) Reset() {
	for _, counter := range []*int64{
		&m.RequestCount, &m.ErrorCount, &m.CacheHits, &m.CacheMisses,
		&m.RateLimitBlocks, &m.BatchesProcessed, &m.RecordsScored,
		&m.RecordsFailed, &m.BurnoutPredicted, &m.SchemaDrift,
	} {
		atomic.StoreInt64(counter, 0)
	}
	m.latency.reset()
	m.byStatus.reset()
	m.bySource.reset()
	m.started = time.Now()
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
