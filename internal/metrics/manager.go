// Package metrics keeps in-process call statistics: tool durations, browser
// launches and per-kind failure counts. Nothing is exported over the network;
// the snapshot is logged at shutdown.
package metrics

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// window is the number of recent durations kept per timing for percentiles
const window = 256

// series is one metric; only the fields for its kind are used
type series struct {
	mu sync.Mutex

	// timing
	count   int64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	last    time.Duration
	recent  []time.Duration
	nextIdx int

	// counter
	value  int64
	lastAt time.Time

	// success/fail
	ok      int64
	failed  int64
	reasons map[string]int64
}

// MetricsManager holds every series, keyed by kind then "topic/function"
type MetricsManager struct {
	mu     sync.RWMutex
	series map[MetricType]map[string]*series
	active map[string]time.Time
	seq    atomic.Uint64
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the process-wide manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = newManager()
	})
	return instance
}

// New returns an independent manager, for components that keep their own
// stats apart from the global one.
func New() *MetricsManager {
	return newManager()
}

func newManager() *MetricsManager {
	m := &MetricsManager{}
	m.reset()
	return m
}

func (m *MetricsManager) reset() {
	m.series = map[MetricType]map[string]*series{
		TypeTiming:      {},
		TypeCounter:     {},
		TypeSuccessFail: {},
	}
	m.active = make(map[string]time.Time)
}

func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// get returns the series at path, creating it on first use
func (m *MetricsManager) get(kind MetricType, path string) *series {
	m.mu.RLock()
	s, ok := m.series[kind][path]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.series[kind][path]; !ok {
		s = &series{}
		m.series[kind][path] = s
	}
	return s
}

// StartTiming begins timing an operation and returns the key for EndTiming
func (m *MetricsManager) StartTiming(topic, function string) string {
	key := buildPath(topic, function) + "#" + strconv.FormatUint(m.seq.Add(1), 10)
	m.mu.Lock()
	m.active[key] = time.Now()
	m.mu.Unlock()
	return key
}

// EndTiming records the time since StartTiming. Unknown or already ended
// keys are ignored.
func (m *MetricsManager) EndTiming(key string) {
	m.mu.Lock()
	start, ok := m.active[key]
	delete(m.active, key)
	m.mu.Unlock()
	if !ok {
		return
	}
	path, _, _ := strings.Cut(key, "#")
	m.RecordDuration(path, "", time.Since(start))
}

// RecordDuration adds one duration to a timing
func (m *MetricsManager) RecordDuration(topic, function string, d time.Duration) {
	s := m.get(TypeTiming, buildPath(topic, function))
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.count++
	s.total += d
	s.last = d

	if len(s.recent) < window {
		s.recent = append(s.recent, d)
	} else {
		s.recent[s.nextIdx] = d
		s.nextIdx = (s.nextIdx + 1) % window
	}
}

// IncrementCounter adds one to a counter
func (m *MetricsManager) IncrementCounter(topic, function string) {
	m.AddCounter(topic, function, 1)
}

// AddCounter adds delta to a counter
func (m *MetricsManager) AddCounter(topic, function string, delta int64) {
	s := m.get(TypeCounter, buildPath(topic, function))
	s.mu.Lock()
	s.value += delta
	s.lastAt = time.Now()
	s.mu.Unlock()
}

// Counter returns a counter's value, 0 if it was never touched
func (m *MetricsManager) Counter(topic, function string) int64 {
	m.mu.RLock()
	s, ok := m.series[TypeCounter][buildPath(topic, function)]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// RecordSuccess counts a successful operation
func (m *MetricsManager) RecordSuccess(topic, function string) {
	s := m.get(TypeSuccessFail, buildPath(topic, function))
	s.mu.Lock()
	s.ok++
	s.mu.Unlock()
}

// RecordFailure counts a failed operation under reason (an error kind)
func (m *MetricsManager) RecordFailure(topic, function, reason string) {
	s := m.get(TypeSuccessFail, buildPath(topic, function))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	if reason == "" {
		return
	}
	if s.reasons == nil {
		s.reasons = make(map[string]int64)
	}
	s.reasons[reason]++
}

// GetSnapshot copies every series, keyed by path
func (m *MetricsManager) GetSnapshot() map[string]*MetricSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*MetricSnapshot)
	for kind, byPath := range m.series {
		for path, s := range byPath {
			s.mu.Lock()
			out[path] = s.snapshot(kind, path)
			s.mu.Unlock()
		}
	}
	return out
}

// snapshot must be called with s.mu held
func (s *series) snapshot(kind MetricType, path string) *MetricSnapshot {
	snap := &MetricSnapshot{Path: path, Type: kind}
	switch kind {
	case TypeTiming:
		var avg float64
		if s.count > 0 {
			avg = ms(s.total) / float64(s.count)
		}
		sorted := slices.Clone(s.recent)
		slices.Sort(sorted)
		snap.Health = timingHealth(avg)
		snap.Data = TimingSnapshot{
			Count:  s.count,
			AvgMs:  avg,
			MinMs:  ms(s.min),
			MaxMs:  ms(s.max),
			LastMs: ms(s.last),
			P50Ms:  percentile(sorted, 50),
			P95Ms:  percentile(sorted, 95),
		}
	case TypeCounter:
		snap.Data = CounterSnapshot{Value: s.value, LastAt: s.lastAt}
	case TypeSuccessFail:
		total := s.ok + s.failed
		var rate float64
		if total > 0 {
			rate = float64(s.ok) / float64(total) * 100
		}
		snap.Health = successHealth(rate, total)
		snap.Data = SuccessFailSnapshot{
			Success:        s.ok,
			Failures:       s.failed,
			SuccessRate:    rate,
			FailureReasons: maps.Clone(s.reasons),
		}
	}
	return snap
}

// Reset drops every series and pending timing
func (m *MetricsManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// percentile picks the pth percentile from sorted durations, in ms
func percentile(sorted []time.Duration, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := min(len(sorted)*p/100, len(sorted)-1)
	return ms(sorted[idx])
}

// timingHealth grades an average duration. Page loads take seconds, so the
// thresholds do too.
func timingHealth(avgMs float64) HealthStatus {
	switch {
	case avgMs > 20000:
		return HealthCritical
	case avgMs > 5000:
		return HealthWarning
	}
	return HealthGood
}

// successHealth grades a success rate; no calls is healthy
func successHealth(rate float64, total int64) HealthStatus {
	switch {
	case total == 0:
		return HealthGood
	case rate < 50:
		return HealthCritical
	case rate < 90:
		return HealthWarning
	}
	return HealthGood
}
