package metrics

import (
	"sort"
	"sync"
	"time"
)

// MetricsManager holds every metric by path ("topic/function").
// Metrics are observational only: nothing reads them to make decisions.
type MetricsManager struct {
	mu      sync.RWMutex
	metrics map[string]interface{}
	types   map[string]MetricType
	started time.Time
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the process-wide manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = NewManager()
	})
	return instance
}

// NewManager returns an empty manager. Tests use their own instead of the global one.
func NewManager() *MetricsManager {
	return &MetricsManager{
		metrics: make(map[string]interface{}),
		types:   make(map[string]MetricType),
		started: time.Now(),
	}
}

func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// getOrCreate returns the metric at path, creating it with mk on first use.
func (m *MetricsManager) getOrCreate(path string, typ MetricType, mk func() interface{}) interface{} {
	m.mu.RLock()
	metric, ok := m.metrics[path]
	m.mu.RUnlock()
	if ok {
		return metric
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if metric, ok := m.metrics[path]; ok {
		return metric
	}
	metric = mk()
	m.metrics[path] = metric
	m.types[path] = typ
	return metric
}

// RecordDuration records a timing sample
func (m *MetricsManager) RecordDuration(topic, function string, duration time.Duration) {
	metric, ok := m.getOrCreate(buildPath(topic, function), TypeTiming, func() interface{} {
		return &TimingMetric{}
	}).(*TimingMetric)
	if !ok {
		return
	}

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Count++
	metric.Total += duration
	metric.Last = duration
	if metric.Min == 0 || duration < metric.Min {
		metric.Min = duration
	}
	if duration > metric.Max {
		metric.Max = duration
	}
	if len(metric.samples) < maxSamples {
		metric.samples = append(metric.samples, duration)
	} else {
		metric.samples[metric.sampleIdx] = duration
		metric.sampleIdx = (metric.sampleIdx + 1) % maxSamples
	}
}

// AddCounter adds delta to a counter
func (m *MetricsManager) AddCounter(topic, function string, delta int64) {
	metric, ok := m.getOrCreate(buildPath(topic, function), TypeCounter, func() interface{} {
		return &CounterMetric{}
	}).(*CounterMetric)
	if !ok {
		return
	}

	metric.mu.Lock()
	metric.Value += delta
	metric.Last = time.Now()
	metric.mu.Unlock()
}

// IncrementCounter adds one to a counter
func (m *MetricsManager) IncrementCounter(topic, function string) {
	m.AddCounter(topic, function, 1)
}

// RecordOutcome counts one occurrence of outcome
func (m *MetricsManager) RecordOutcome(topic, function, outcome string) {
	metric, ok := m.getOrCreate(buildPath(topic, function), TypeOutcome, func() interface{} {
		return &OutcomeMetric{Outcomes: make(map[string]int64)}
	}).(*OutcomeMetric)
	if !ok {
		return
	}

	metric.mu.Lock()
	metric.Outcomes[outcome]++
	metric.Total++
	metric.LastOutcome = outcome
	metric.mu.Unlock()
}

// RecordError counts one error of errorType
func (m *MetricsManager) RecordError(topic, function, errorType string) {
	metric, ok := m.getOrCreate(buildPath(topic, function), TypeError, func() interface{} {
		return &ErrorMetric{ErrorsByType: make(map[string]int64)}
	}).(*ErrorMetric)
	if !ok {
		return
	}

	metric.mu.Lock()
	metric.ErrorsByType[errorType]++
	metric.TotalErrors++
	metric.LastErrorType = errorType
	metric.LastErrorTime = time.Now()
	metric.mu.Unlock()
}

// Uptime returns how long the manager has existed
func (m *MetricsManager) Uptime() time.Duration {
	return time.Since(m.started)
}

// GetSnapshot returns a copy of every metric, keyed by path
func (m *MetricsManager) GetSnapshot() map[string]*MetricSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*MetricSnapshot, len(m.metrics))
	for path, metric := range m.metrics {
		snap := &MetricSnapshot{Path: path, Type: m.types[path]}
		switch v := metric.(type) {
		case *TimingMetric:
			snap.Data = v.snapshot()
		case *CounterMetric:
			v.mu.Lock()
			snap.Data = CounterSnapshot{Value: v.Value}
			v.mu.Unlock()
		case *OutcomeMetric:
			v.mu.Lock()
			snap.Data = OutcomeSnapshot{Outcomes: copyCounts(v.Outcomes), Total: v.Total, LastOutcome: v.LastOutcome}
			v.mu.Unlock()
		case *ErrorMetric:
			v.mu.Lock()
			snap.Data = ErrorSnapshot{ErrorsByType: copyCounts(v.ErrorsByType), TotalErrors: v.TotalErrors, LastErrorType: v.LastErrorType}
			v.mu.Unlock()
		}
		out[path] = snap
	}
	return out
}

func (t *TimingMetric) snapshot() TimingSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := TimingSnapshot{
		Count:  t.Count,
		MinMs:  toMs(t.Min),
		MaxMs:  toMs(t.Max),
		LastMs: toMs(t.Last),
	}
	if t.Count > 0 {
		snap.AvgMs = toMs(t.Total) / float64(t.Count)
	}
	snap.P95Ms = calculatePercentile(t.samples, 95)
	return snap
}

func calculatePercentile(samples []time.Duration, percentile int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted)*percentile + 99) / 100
	if idx > 0 {
		idx--
	}
	return toMs(sorted[idx])
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
