// Package metrics keeps in-process counters and timings.
// Use dot import to access MetricInc, MetricDuration, etc. directly.
package metrics

import "time"

// Global functions for dot-import usage

// MetricDuration records a duration directly
func MetricDuration(topic, function string, duration time.Duration) {
	GetInstance().RecordDuration(topic, function, duration)
}

// MetricInc increments a counter by 1
func MetricInc(topic, function string) {
	GetInstance().IncrementCounter(topic, function)
}

// MetricAdd adds a value to a counter
func MetricAdd(topic, function string, delta int64) {
	GetInstance().AddCounter(topic, function, delta)
}

// MetricOutcome records a specific outcome
func MetricOutcome(topic, operation, outcome string) {
	GetInstance().RecordOutcome(topic, operation, outcome)
}

// MetricError records an error with type classification
func MetricError(topic, operation, errorType string) {
	GetInstance().RecordError(topic, operation, errorType)
}
