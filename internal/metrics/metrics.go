package metrics

import (
	"os"
	"path"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"github.com/pkg/errors"
)

// Metrics keeps counters and gauges as time series.
// Counters are accumulated in memory and every new value is appended as a point.
type Metrics struct {
	storage  tstorage.Storage
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
}

// InitMetrics opens a storage under workdir/data/metrics, or a memory-only
// storage when workdir is empty.
func InitMetrics(workdir string) (*Metrics, error) {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
		tstorage.WithRetention(7 * 24 * time.Hour),
	}
	if workdir != "" {
		dataPath := path.Join(workdir, "data", "metrics")
		if err := os.MkdirAll(dataPath, 0o755); err != nil {
			return nil, errors.Wrap(err, "create metrics dir")
		}
		opts = append(opts, tstorage.WithDataPath(dataPath))
	}
	storage, err := tstorage.NewStorage(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "open metrics storage")
	}
	return &Metrics{
		storage:  storage,
		counters: make(map[string]int64),
		gauges:   make(map[string]int64),
	}, nil
}

func (m *Metrics) insert(metric string, value int64) error {
	return m.storage.InsertRows([]tstorage.Row{{
		Metric:    metric,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
}

// Incr adds one to a counter
func (m *Metrics) Incr(metric string) error {
	m.mu.Lock()
	m.counters[metric]++
	v := m.counters[metric]
	m.mu.Unlock()
	return m.insert(metric, v)
}

// Add adds delta to a counter
func (m *Metrics) Add(metric string, delta int64) error {
	m.mu.Lock()
	m.counters[metric] += delta
	v := m.counters[metric]
	m.mu.Unlock()
	return m.insert(metric, v)
}

func (m *Metrics) SetGauge(metric string, value int64) error {
	m.mu.Lock()
	m.gauges[metric] = value
	m.mu.Unlock()
	return m.insert(metric, value)
}

// Counter returns the current value of a counter
func (m *Metrics) Counter(metric string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metric]
}

// Gauge returns the last value set for a gauge
func (m *Metrics) Gauge(metric string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[metric]
}

// Query returns the points recorded for metric since the given time
func (m *Metrics) Query(metric string, since time.Time) ([]*tstorage.DataPoint, error) {
	points, err := m.storage.Select(metric, nil, since.Unix(), time.Now().Unix()+1)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	return points, err
}

func (m *Metrics) Close() error {
	return m.storage.Close()
}
