package metrics

import "time"

// MetricType is the kind of a series
type MetricType string

const (
	TypeTiming      MetricType = "timing"
	TypeCounter     MetricType = "counter"
	TypeSuccessFail MetricType = "success_fail"
)

// HealthStatus grades a series for the shutdown report
type HealthStatus int

const (
	HealthGood HealthStatus = iota
	HealthWarning
	HealthCritical
)

func (h HealthStatus) String() string {
	switch h {
	case HealthWarning:
		return "warning"
	case HealthCritical:
		return "critical"
	default:
		return "good"
	}
}

// MarshalText makes health readable in logged snapshots
func (h HealthStatus) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// MetricSnapshot is a point-in-time copy of one series. Data is a
// TimingSnapshot, CounterSnapshot or SuccessFailSnapshot depending on Type.
type MetricSnapshot struct {
	Path   string       `json:"path"`
	Type   MetricType   `json:"type"`
	Health HealthStatus `json:"health"`
	Data   any          `json:"data"`
}

// TimingSnapshot summarizes recorded durations in milliseconds
type TimingSnapshot struct {
	Count  int64   `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	LastMs float64 `json:"last_ms"`
	P50Ms  float64 `json:"p50_ms,omitempty"`
	P95Ms  float64 `json:"p95_ms,omitempty"`
}

// CounterSnapshot is a counter's value and when it last moved
type CounterSnapshot struct {
	Value  int64     `json:"value"`
	LastAt time.Time `json:"last_at"`
}

// SuccessFailSnapshot counts outcomes; FailureReasons is keyed by error kind
type SuccessFailSnapshot struct {
	Success        int64            `json:"success"`
	Failures       int64            `json:"failures"`
	SuccessRate    float64          `json:"success_rate"`
	FailureReasons map[string]int64 `json:"failure_reasons,omitempty"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
