package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiming(t *testing.T) {
	m := newManager()
	m.RecordDuration("tool", "scrape_url", 100*time.Millisecond)
	m.RecordDuration("tool", "scrape_url", 300*time.Millisecond)

	snap := m.GetSnapshot()
	require.Contains(t, snap, "tool/scrape_url")
	data := snap["tool/scrape_url"].Data.(TimingSnapshot)
	assert.Equal(t, int64(2), data.Count)
	assert.InDelta(t, 200, data.AvgMs, 0.001)
	assert.InDelta(t, 100, data.MinMs, 0.001)
	assert.InDelta(t, 300, data.MaxMs, 0.001)
}

func TestStartEndTiming(t *testing.T) {
	m := newManager()
	key := m.StartTiming("browser", "launch")
	m.EndTiming(key)
	m.EndTiming(key) // second end is ignored

	data := m.GetSnapshot()["browser/launch"].Data.(TimingSnapshot)
	assert.Equal(t, int64(1), data.Count)
}

func TestCountersAndOutcomes(t *testing.T) {
	m := newManager()
	m.IncrementCounter("browser", "launches")
	m.IncrementCounter("browser", "launches")
	assert.Equal(t, int64(2), m.Counter("browser", "launches"))
	assert.Equal(t, int64(0), m.Counter("browser", "missing"))

	m.RecordSuccess("tool", "extract_links")
	m.RecordFailure("tool", "extract_links", "navigation_timeout")
	m.RecordFailure("tool", "extract_links", "navigation_timeout")

	data := m.GetSnapshot()["tool/extract_links"].Data.(SuccessFailSnapshot)
	assert.Equal(t, int64(1), data.Success)
	assert.Equal(t, int64(2), data.Failures)
	assert.Equal(t, int64(2), data.FailureReasons["navigation_timeout"])

	m.Reset()
	assert.Empty(t, m.GetSnapshot())
}

func TestPercentilesAndWindow(t *testing.T) {
	m := newManager()
	for i := 1; i <= window+10; i++ {
		m.RecordDuration("tool", "scrape_url", time.Duration(i)*time.Millisecond)
	}
	data := m.GetSnapshot()["tool/scrape_url"].Data.(TimingSnapshot)
	assert.Equal(t, int64(window+10), data.Count)
	assert.InDelta(t, 1, data.MinMs, 0.001)
	assert.InDelta(t, window+10, data.MaxMs, 0.001)
	// the oldest samples fell out of the window
	assert.Greater(t, data.P50Ms, float64(window/2))
	assert.LessOrEqual(t, data.P95Ms, data.MaxMs)
}

func TestHealth(t *testing.T) {
	m := newManager()
	m.RecordDuration("tool", "slow", 30*time.Second)
	m.RecordFailure("calls", "scrape_url", "navigation")
	m.RecordSuccess("calls", "extract_links")

	snap := m.GetSnapshot()
	assert.Equal(t, HealthCritical, snap["tool/slow"].Health)
	assert.Equal(t, HealthCritical, snap["calls/scrape_url"].Health)
	assert.Equal(t, HealthGood, snap["calls/extract_links"].Health)
	assert.Equal(t, "critical", HealthCritical.String())
}
