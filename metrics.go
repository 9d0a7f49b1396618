package localstorage

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counters holds operation statistics. Updated atomically without locks.
type counters struct {
	stores        atomic.Uint64
	gets          atomic.Uint64
	removes       atomic.Uint64
	loads         atomic.Uint64
	persists      atomic.Uint64
	persistErrors atomic.Uint64

	persistNanos atomic.Int64
	lastPersist  atomic.Int64 // unix nanos
}

func (c *counters) persisted(at time.Time, took time.Duration) {
	c.persists.Add(1)
	c.persistNanos.Add(took.Nanoseconds())
	c.lastPersist.Store(at.UnixNano())
}

// Stats is a point-in-time view of a LocalStorage.
type Stats struct {
	Entries    int
	Dirty      bool
	FileExists bool

	Stores        uint64
	Gets          uint64
	Removes       uint64
	Loads         uint64
	Persists      uint64
	PersistErrors uint64

	// PersistDuration is the total time spent in successful persists.
	PersistDuration time.Duration
	// LastPersist is zero until the first successful persist.
	LastPersist time.Time
}

// Stats returns current statistics.
func (s *LocalStorage) Stats() Stats {
	st := Stats{
		Entries:         s.Count(),
		Dirty:           s.Dirty(),
		FileExists:      s.file.Exists(),
		Stores:          s.stats.stores.Load(),
		Gets:            s.stats.gets.Load(),
		Removes:         s.stats.removes.Load(),
		Loads:           s.stats.loads.Load(),
		Persists:        s.stats.persists.Load(),
		PersistErrors:   s.stats.persistErrors.Load(),
		PersistDuration: time.Duration(s.stats.persistNanos.Load()),
	}
	if ns := s.stats.lastPersist.Load(); ns != 0 {
		st.LastPersist = time.Unix(0, ns)
	}
	return st
}

// --------------------------------------------------------------------------
// Prometheus
// --------------------------------------------------------------------------

type collector struct {
	s *LocalStorage

	entries         *prometheus.Desc
	operations      *prometheus.Desc
	persistErrors   *prometheus.Desc
	persistDuration *prometheus.Desc
	lastPersist     *prometheus.Desc
}

// NewCollector returns a prometheus.Collector exporting the statistics of s.
// Metrics carry a "store" label holding the backing file name.
func NewCollector(s *LocalStorage, namespace string) prometheus.Collector {
	labels := prometheus.Labels{"store": filepath.Base(s.Path())}
	name := func(n string) string { return prometheus.BuildFQName(namespace, "localstorage", n) }

	return &collector{
		s:               s,
		entries:         prometheus.NewDesc(name("entries"), "Number of entries in memory.", nil, labels),
		operations:      prometheus.NewDesc(name("operations_total"), "Operations performed, by type.", []string{"op"}, labels),
		persistErrors:   prometheus.NewDesc(name("persist_errors_total"), "Failed persists.", nil, labels),
		persistDuration: prometheus.NewDesc(name("persist_duration_seconds_total"), "Time spent in successful persists.", nil, labels),
		lastPersist:     prometheus.NewDesc(name("last_persist_timestamp_seconds"), "Unix time of the last successful persist.", nil, labels),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.operations
	ch <- c.persistErrors
	ch <- c.persistDuration
	ch <- c.lastPersist
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.s.Stats()

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(st.Entries))
	for op, n := range map[string]uint64{
		"store":   st.Stores,
		"get":     st.Gets,
		"remove":  st.Removes,
		"load":    st.Loads,
		"persist": st.Persists,
	} {
		ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(n), op)
	}
	ch <- prometheus.MustNewConstMetric(c.persistErrors, prometheus.CounterValue, float64(st.PersistErrors))
	ch <- prometheus.MustNewConstMetric(c.persistDuration, prometheus.CounterValue, st.PersistDuration.Seconds())
	if !st.LastPersist.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastPersist, prometheus.GaugeValue, float64(st.LastPersist.UnixNano())/1e9)
	}
}
