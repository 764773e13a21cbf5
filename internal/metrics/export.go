package metrics

import "time"

// Shorthands over GetInstance() for call sites outside the scraper service.

func MetricStart(topic, function string) string {
	return GetInstance().StartTiming(topic, function)
}

func MetricEnd(key string) {
	GetInstance().EndTiming(key)
}

func MetricDuration(topic, function string, d time.Duration) {
	GetInstance().RecordDuration(topic, function, d)
}

func MetricInc(topic, function string) {
	GetInstance().IncrementCounter(topic, function)
}

func MetricSuccess(topic, function string) {
	GetInstance().RecordSuccess(topic, function)
}

// MetricFailWithReason counts a failure under reason
func MetricFailWithReason(topic, function, reason string) {
	GetInstance().RecordFailure(topic, function, reason)
}

// Snapshot copies the process-wide metrics
func Snapshot() map[string]*MetricSnapshot {
	return GetInstance().GetSnapshot()
}
