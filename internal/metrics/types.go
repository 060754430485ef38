package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	TypeTiming  MetricType = "timing"
	TypeCounter MetricType = "counter"
	TypeOutcome MetricType = "outcome"
	TypeError   MetricType = "error"
)

// maxSamples bounds the ring buffer used for percentiles
const maxSamples = 256

// TimingMetric tracks timing statistics
type TimingMetric struct {
	mu        sync.Mutex
	Count     int64
	Total     time.Duration
	Min       time.Duration
	Max       time.Duration
	Last      time.Duration
	samples   []time.Duration // ring buffer for percentiles
	sampleIdx int
}

// CounterMetric tracks incrementing values
type CounterMetric struct {
	mu    sync.Mutex
	Value int64
	Last  time.Time
}

// OutcomeMetric tracks multiple possible outcomes
type OutcomeMetric struct {
	mu          sync.Mutex
	Outcomes    map[string]int64
	LastOutcome string
	Total       int64
}

// ErrorMetric tracks errors by type
type ErrorMetric struct {
	mu            sync.Mutex
	ErrorsByType  map[string]int64
	TotalErrors   int64
	LastErrorType string
	LastErrorTime time.Time
}

// MetricSnapshot represents a point-in-time view of a metric
type MetricSnapshot struct {
	Path string      `json:"path"`
	Type MetricType  `json:"type"`
	Data interface{} `json:"data"`
}

// TimingSnapshot for JSON serialization
type TimingSnapshot struct {
	Count  int64   `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	LastMs float64 `json:"last_ms"`
	P95Ms  float64 `json:"p95_ms,omitempty"`
}

// CounterSnapshot for JSON serialization
type CounterSnapshot struct {
	Value int64 `json:"value"`
}

// OutcomeSnapshot for JSON serialization
type OutcomeSnapshot struct {
	Outcomes    map[string]int64 `json:"outcomes"`
	Total       int64            `json:"total"`
	LastOutcome string           `json:"last_outcome,omitempty"`
}

// ErrorSnapshot for JSON serialization
type ErrorSnapshot struct {
	ErrorsByType  map[string]int64 `json:"errors_by_type"`
	TotalErrors   int64            `json:"total_errors"`
	LastErrorType string           `json:"last_error_type,omitempty"`
}
